package dedup

// SimilarityThreshold is the rescaled-cosine score at or above which two items
// are considered the same story. High on purpose: near-duplicates merge,
// loosely related stories do not.
const SimilarityThreshold = 0.90

// Clusters partitions vector indices into groups of mutually similar vectors
// using greedy single-linkage in one pass. Every index lands in exactly one
// cluster and the first element of each cluster is its seed. The walk is
// order-dependent: earlier indices win ties.
func Clusters(vectors [][]float64, threshold float64) [][]int {
	clusters := make([][]int, 0, len(vectors))
	merged := make(map[int]struct{}, len(vectors))

	for i := range vectors {
		if _, ok := merged[i]; ok {
			continue
		}

		cluster := []int{i}
		for j := i + 1; j < len(vectors); j++ {
			if _, ok := merged[j]; ok {
				continue
			}
			if Similarity(vectors[i], vectors[j]) >= threshold {
				cluster = append(cluster, j)
				merged[j] = struct{}{}
			}
		}
		clusters = append(clusters, cluster)
	}

	return clusters
}
