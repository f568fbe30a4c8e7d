// Package clusterboot estimates how stable a clustering is under
// bootstrap resampling.
//
// Given a dataset and an opaque clustering function, it repeatedly draws
// bootstrap replicates (same size, sampled with replacement), reclusters
// each replicate, re-identifies every replicate observation by its
// nearest neighbor in the original dataset, and tallies how often each
// pair of original clusters collapses into a single replicate cluster.
// The output is a pairwise merge-probability matrix: values near 0 mean
// a cluster pair is stably separated, values near 1 mean the pair is
// indistinguishable under resampling noise and should be considered a
// merge candidate. Tallying is strictly pairwise, so an unstable rare
// cluster cannot contaminate the readings of unrelated, well-separated
// pairs.
//
// Basic usage:
//
//	cfg := clusterboot.DefaultConfig()
//	cfg.Iterations = 200
//	cfg.Seed = 42
//	result, err := clusterboot.Stability(data, myClusterer, cfg)
//	// result.Labels lists the original cluster labels
//	// result.Merge.At(i, j) is the merge probability of Labels[i], Labels[j]
//	// result.MergeProbability(a, b) looks a pair up by label
//
// The clustering algorithm is supplied by the caller as a [Clusterer] and
// treated as a black box; any partitioning method (k-means, hierarchical,
// density-based) can be plugged in, deterministic or not. Nearest-neighbor
// lookup runs under a caller-chosen [DistanceMetric], optionally in a
// reduced space via an [Embedder].
//
// Iterations are independent and run on a worker pool; each draws its own
// seeded randomness derived from Config.Seed, so a run is reproducible
// regardless of Config.Workers. Iterations whose clusterer call fails are
// discarded, and probabilities are always normalized by the number of
// iterations actually completed. If more than Config.MaxFailureFraction
// of the attempted iterations fail, the run returns
// [ErrInsufficientIterations] instead of an unreliable report.
package clusterboot
