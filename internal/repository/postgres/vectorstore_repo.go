package postgres

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VectorStoreRepository implements domain.VectorStoreRepository using
// PostgreSQL, with an in-process vectorstore.Store consulted first as a
// read-through cache (spec.md §4.7). Dimension is fixed at construction;
// mixing D=7 and D=1536 vectors against one instance is rejected at Upsert.
type VectorStoreRepository struct {
	pool  *pgxpool.Pool
	cache *vectorstore.Store
}

func NewVectorStoreRepository(pool *pgxpool.Pool, dimension int) *VectorStoreRepository {
	return &VectorStoreRepository{pool: pool, cache: vectorstore.New(dimension)}
}

func (r *VectorStoreRepository) Upsert(ctx context.Context, record domain.EmbeddingRecord, content string) error {
	if err := r.cache.Upsert(ctx, record, content); err != nil {
		return err
	}

	vector := make([]float64, len(record.Vector))
	copy(vector, record.Vector)
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO embeddings (id, user_id, vector, content, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET vector = EXCLUDED.vector, content = EXCLUDED.content, metadata = EXCLUDED.metadata
	`, record.ID, record.UserID, vector, content, metadata)
	return err
}

// Search consults the in-process cache first (hot path for the request that
// just computed the insight being searched for) and falls back to a full
// per-user scan over the embeddings table, scoring with cosine similarity
// in Go. The user scope check happens in SQL (WHERE user_id = $1) and again
// in vectorstore.CosineSimilarity's caller — a document belonging to
// another user is never a candidate (spec.md §4.7, §8).
func (r *VectorStoreRepository) Search(ctx context.Context, userID string, queryVector []float64, limit int) ([]domain.RetrievalDocument, error) {
	if cached, err := r.cache.Search(ctx, userID, queryVector, limit); err == nil && len(cached) > 0 {
		return cached, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, vector, content, metadata FROM embeddings WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type scored struct {
		doc   domain.RetrievalDocument
		score float64
	}
	var candidates []scored
	for rows.Next() {
		var id, rowUserID, content string
		var vector []float64
		var metadataRaw []byte
		if err := rows.Scan(&id, &rowUserID, &vector, &content, &metadataRaw); err != nil {
			return nil, err
		}
		if rowUserID != userID {
			continue
		}
		var metadata map[string]any
		_ = json.Unmarshal(metadataRaw, &metadata)

		score := vectorstore.CosineSimilarity(queryVector, vector)
		merged := make(map[string]any, len(metadata)+1)
		for k, v := range metadata {
			merged[k] = v
		}
		merged["score"] = score

		candidates = append(candidates, scored{
			doc:   domain.RetrievalDocument{ID: id, UserID: rowUserID, Content: content, Metadata: merged},
			score: score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if limit < 1 {
		limit = 1
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]domain.RetrievalDocument, len(candidates))
	for i, c := range candidates {
		out[i] = c.doc
	}
	return out, nil
}
