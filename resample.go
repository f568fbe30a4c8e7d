package clusterboot

import "math/rand"

// Resample draws a bootstrap replicate of data: len(data) observations
// sampled independently and uniformly with replacement. Feature vectors
// are shared with the original dataset, not copied; replicates must be
// treated as read-only. All randomness comes from rng, so a fixed seed
// yields a fixed replicate.
func Resample(data [][]float64, rng *rand.Rand) [][]float64 {
	idx := resampleIndices(len(data), rng)
	rep := make([][]float64, len(idx))
	for i, j := range idx {
		rep[i] = data[j]
	}
	return rep
}

// resampleIndices draws n source indices uniformly with replacement.
func resampleIndices(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}
