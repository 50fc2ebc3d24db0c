package provider

import (
	"math"
	"strings"

	"github.com/fadhilmayati/dompet-platform/internal/kpi"
)

// internalTextEmbed produces a deterministic 7-dimension fallback vector for
// arbitrary text when no embedding-capable vendor is configured (spec.md
// §4.6 capability-registry fallback). It shares the internal embedder's
// dimension with the KPI engine's insight embedder (internal/kpi) so both
// land in the same vector space when D=7.
func internalTextEmbed(text string) []float64 {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	var vowels, digits, punctuation float64
	for _, r := range lower {
		switch {
		case strings.ContainsRune("aeiou", r):
			vowels++
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(".,!?;:", r):
			punctuation++
		}
	}

	length := float64(len(lower))
	wordCount := float64(len(words))
	avgWordLen := 0.0
	if wordCount > 0 {
		avgWordLen = length / wordCount
	}

	vec := []float64{
		math.Min(length/400, 1),
		math.Min(wordCount/80, 1),
		math.Min(avgWordLen/12, 1),
		math.Min(vowels/math.Max(length, 1), 1),
		math.Min(digits/math.Max(length, 1), 1),
		math.Min(punctuation/math.Max(length, 1), 1),
		hashBucket(lower),
	}
	return kpi.L2Normalize(vec)
}

// hashBucket maps text to a stable [0,1] value via a small rolling hash, so
// distinct strings with identical surface statistics still separate.
func hashBucket(s string) float64 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return float64(h%1000) / 1000
}
