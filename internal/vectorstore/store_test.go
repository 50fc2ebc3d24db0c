package vectorstore

import (
	"context"
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_IdenticalVectorsScoreOne(t *testing.T) {
	a := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
}

func TestCosineSimilarity_OrthogonalVectorsScoreZero(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
}

func TestCosineSimilarity_ZeroVectorScoresZeroNotNaN(t *testing.T) {
	score := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	assert.Equal(t, 0.0, score)
}

func TestStore_Upsert_RejectsDimensionMismatch(t *testing.T) {
	s := New(7)
	err := s.Upsert(context.Background(), domain.EmbeddingRecord{
		ID: "e1", UserID: "u1", Vector: []float64{1, 2, 3},
	}, "content")
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestStore_Search_ScopesStrictlyByUser(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Upsert(context.Background(), domain.EmbeddingRecord{
		ID: "mine", UserID: "u1", Vector: []float64{1, 0},
	}, "mine content"))
	require.NoError(t, s.Upsert(context.Background(), domain.EmbeddingRecord{
		ID: "theirs", UserID: "u2", Vector: []float64{1, 0},
	}, "their content"))

	docs, err := s.Search(context.Background(), "u1", []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mine", docs[0].ID)
}

func TestStore_Search_OrdersByDescendingScoreAndRespectsLimit(t *testing.T) {
	s := New(2)
	require.NoError(t, s.Upsert(context.Background(), domain.EmbeddingRecord{
		ID: "close", UserID: "u1", Vector: []float64{0.9, 0.1},
	}, "close"))
	require.NoError(t, s.Upsert(context.Background(), domain.EmbeddingRecord{
		ID: "far", UserID: "u1", Vector: []float64{0, 1},
	}, "far"))

	docs, err := s.Search(context.Background(), "u1", []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "close", docs[0].ID)
}

func TestStore_Search_IncludesScoreInMetadataWithoutMutatingSource(t *testing.T) {
	s := New(2)
	source := map[string]any{"month": "2026-07"}
	require.NoError(t, s.Upsert(context.Background(), domain.EmbeddingRecord{
		ID: "e1", UserID: "u1", Vector: []float64{1, 0}, Metadata: source,
	}, "content"))

	docs, err := s.Search(context.Background(), "u1", []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Metadata, "score")
	assert.Contains(t, docs[0].Metadata, "month")
	_, mutated := source["score"]
	assert.False(t, mutated, "Search must not mutate the caller's stored metadata map")
}

func TestStore_Search_RejectsDimensionMismatch(t *testing.T) {
	s := New(7)
	_, err := s.Search(context.Background(), "u1", []float64{1, 2}, 5)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
