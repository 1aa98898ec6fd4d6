package dedup

import "math"

// Similarity computes the cosine similarity of two embedding vectors and
// rescales it from [-1, 1] to [0, 1]. A zero-magnitude or mismatched vector
// scores 0.0 rather than erroring.
func Similarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, sumA, sumB float64
	for i := range a {
		dot += a[i] * b[i]
		sumA += a[i] * a[i]
		sumB += b[i] * b[i]
	}

	normA := math.Sqrt(sumA)
	normB := math.Sqrt(sumB)
	if normA == 0 || normB == 0 {
		return 0.0
	}

	cosine := dot / (normA * normB)
	return (cosine + 1) / 2
}
