package domain

import "context"

// RetrievalDocument is one scored hit returned by VectorStore.Search,
// joined back to the insight content it was embedded from (spec.md §4.7).
type RetrievalDocument struct {
	ID       string         `json:"id"`
	UserID   string         `json:"userId"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// VectorStoreRepository persists EmbeddingRecord rows and serves
// cosine-similarity search scoped strictly to one user (spec.md §4.7).
// Dimension is fixed at construction; callers mixing internal (D=7) and
// external (D=1536) embedders against the same store is a fatal
// configuration error, not a runtime one.
type VectorStoreRepository interface {
	Upsert(ctx context.Context, record EmbeddingRecord, content string) error
	Search(ctx context.Context, userID string, queryVector []float64, limit int) ([]RetrievalDocument, error)
}
