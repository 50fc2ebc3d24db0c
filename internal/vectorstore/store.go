package vectorstore

import (
	"context"
	"sort"
	"sync"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
)

type entry struct {
	record  domain.EmbeddingRecord
	content string
}

// Store is an in-process implementation of domain.VectorStoreRepository.
// It backs unit tests and doubles as the process-local cache the Postgres
// repository consults before falling back to a full scan; dimension is
// fixed at construction (spec.md §4.7).
type Store struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]entry
}

// New builds a Store fixed at the given embedding dimension. Mixing
// dimensions (D=7 internal vs D=1536 external) against one store is the
// fatal configuration error spec.md §4.7 calls out, so it's rejected at
// Upsert rather than silently truncated or padded.
func New(dimension int) *Store {
	return &Store{dimension: dimension, records: make(map[string]entry)}
}

func (s *Store) Upsert(ctx context.Context, record domain.EmbeddingRecord, content string) error {
	if len(record.Vector) != s.dimension {
		return domain.ErrDimensionMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = entry{record: record, content: content}
	return nil
}

type scored struct {
	doc   domain.RetrievalDocument
	score float64
}

// Search returns the top-`limit` documents by cosine similarity among
// records whose UserID matches, joined back to stored content.
// The scope check lives here, not in the caller: a document belonging to
// another user is never a candidate, regardless of what the caller passes.
func (s *Store) Search(ctx context.Context, userID string, queryVector []float64, limit int) ([]domain.RetrievalDocument, error) {
	if len(queryVector) != s.dimension {
		return nil, domain.ErrDimensionMismatch
	}
	if limit < 1 {
		limit = 1
	}

	s.mu.RLock()
	candidates := make([]scored, 0, len(s.records))
	for _, e := range s.records {
		if e.record.UserID != userID {
			continue
		}
		score := CosineSimilarity(queryVector, e.record.Vector)
		metadata := mergeMetadata(e.record.Metadata, score)
		candidates = append(candidates, scored{
			doc: domain.RetrievalDocument{
				ID:       e.record.ID,
				UserID:   e.record.UserID,
				Content:  e.content,
				Metadata: metadata,
			},
			score: score,
		})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]domain.RetrievalDocument, len(candidates))
	for i, c := range candidates {
		out[i] = c.doc
	}
	return out, nil
}

func mergeMetadata(source map[string]any, score float64) map[string]any {
	merged := make(map[string]any, len(source)+1)
	for k, v := range source {
		merged[k] = v
	}
	merged["score"] = score
	return merged
}
