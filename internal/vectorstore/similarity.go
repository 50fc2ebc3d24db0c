// Package vectorstore implements cosine-similarity search over embedded
// insight content, scoped per user (spec.md §4.7).
package vectorstore

import "gonum.org/v1/gonum/floats"

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. Either vector being all-zero yields 0 rather than NaN.
func CosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
