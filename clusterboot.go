package clusterboot

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
)

// Config controls a stability run.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Iterations is the number of bootstrap iterations T.
	// Must be >= 1. Default: 100.
	Iterations int

	// Metric is the distance function used for nearest-neighbor
	// re-identification of replicate observations. Built-in:
	// EuclideanMetric, ManhattanMetric, ChebyshevMetric, CosineMetric.
	// Use DistanceFunc to wrap a custom function. Default: EuclideanMetric.
	Metric DistanceMetric

	// Embedder, if set, maps datasets into a reduced space before
	// nearest-neighbor lookup. The clusterer always receives raw data.
	// Default: nil (lookup in feature space).
	Embedder Embedder

	// Seed is the master seed for the run. Every iteration derives its own
	// child seed from it, so results are reproducible for a fixed dataset,
	// clusterer, metric, and seed, independent of Workers. Zero is a valid
	// seed.
	Seed int64

	// Workers controls the number of goroutines running bootstrap
	// iterations. 0 means use runtime.NumCPU(). Default: 0 (auto).
	Workers int

	// LeafSize controls the maximum number of points in a KD-tree leaf
	// node. Default: 40.
	LeafSize int

	// MaxFailureFraction bounds the fraction of iterations that may be
	// discarded due to clusterer errors before the run fails with
	// ErrInsufficientIterations. 0 means no failures are tolerated.
	// Must be in [0, 1). DefaultConfig sets 0.05.
	MaxFailureFraction float64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Iterations:         100,
		Metric:             EuclideanMetric{},
		LeafSize:           40,
		MaxFailureFraction: 0.05,
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Iterations < 1 {
		return fmt.Errorf("clusterboot: Iterations must be >= 1, got %d", cfg.Iterations)
	}
	if cfg.MaxFailureFraction < 0 || cfg.MaxFailureFraction >= 1 {
		return fmt.Errorf("clusterboot: MaxFailureFraction must be in [0, 1), got %f", cfg.MaxFailureFraction)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("clusterboot: Workers must be >= 0, got %d", cfg.Workers)
	}
	if cfg.LeafSize < 1 {
		return fmt.Errorf("clusterboot: LeafSize must be >= 1, got %d", cfg.LeafSize)
	}
	return nil
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Iterations == 0 {
		cfg.Iterations = 100
	}
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.LeafSize == 0 {
		cfg.LeafSize = 40
	}
}

// Stability estimates the pairwise merge probabilities of the clusters
// found in data. The clusterer is invoked once on data to establish the
// reference partition, then once per bootstrap replicate.
func Stability(data [][]float64, clusterer Clusterer, cfg Config) (*Result, error) {
	return StabilityContext(context.Background(), data, clusterer, cfg)
}

// StabilityContext is Stability with a context. When ctx expires, the run
// stops launching new iterations and reports partial results normalized
// over the iterations actually completed.
func StabilityContext(ctx context.Context, data [][]float64, clusterer Clusterer, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}

	reference, err := clusterer.Cluster(data)
	if err != nil {
		return nil, fmt.Errorf("clusterboot: reference clustering failed: %w", err)
	}

	return stabilityRun(ctx, data, reference, clusterer, cfg)
}

// StabilityFromPartition runs the estimator against a caller-supplied
// reference partition instead of invoking the clusterer on the original
// data. The reference partition is fixed for the whole run either way;
// this entry point just lets callers reuse one they already computed.
func StabilityFromPartition(ctx context.Context, data [][]float64, reference []int, clusterer Clusterer, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyDataset
	}

	return stabilityRun(ctx, data, reference, clusterer, cfg)
}

// stabilityRun drives the bootstrap loop: resample → cluster → match →
// tally, all iterations independent, per-worker tallies merged at the end.
func stabilityRun(ctx context.Context, data [][]float64, reference []int, clusterer Clusterer, cfg Config) (*Result, error) {
	n := len(data)
	if len(reference) != n {
		return nil, fmt.Errorf("clusterboot: reference partition has %d labels for %d observations: %w",
			len(reference), n, ErrPartitionLength)
	}

	labels := distinctLabels(reference)
	if len(labels) < 2 {
		return nil, ErrDegeneratePartition
	}
	ordinal := make(map[int]int, len(labels))
	for i, l := range labels {
		ordinal[l] = i
	}

	// The reference dataset is embedded and indexed once; every iteration
	// queries the same read-only tree.
	refSpace := data
	if cfg.Embedder != nil {
		embedded, err := cfg.Embedder.Embed(data)
		if err != nil {
			return nil, fmt.Errorf("clusterboot: embedding reference dataset failed: %w", err)
		}
		if len(embedded) != n {
			return nil, fmt.Errorf("clusterboot: embedder returned %d rows for %d observations: %w",
				len(embedded), n, ErrPartitionLength)
		}
		refSpace = embedded
	}
	index := NewKDTree(refSpace, cfg.Metric, cfg.LeafSize)

	// Child seeds are drawn up front from the master seed so that iteration
	// i consumes the same randomness no matter which worker runs it.
	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Iterations)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	jobs := make(chan int)
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Iterations; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	workers := cfg.Workers
	if workers > cfg.Iterations {
		workers = cfg.Iterations
	}

	type workerState struct {
		tally     *coassignTally
		completed int
		failed    int
	}
	states := make([]workerState, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(state *workerState) {
			defer wg.Done()
			state.tally = newCoassignTally(len(labels))
			for job := range jobs {
				rng := rand.New(rand.NewSource(seeds[job]))
				if runIteration(data, reference, index, ordinal, clusterer, cfg.Embedder, rng, state.tally) {
					state.completed++
				} else {
					state.failed++
				}
			}
		}(&states[w])
	}
	wg.Wait()

	tally := newCoassignTally(len(labels))
	completed, failed := 0, 0
	for i := range states {
		tally.merge(states[i].tally)
		completed += states[i].completed
		failed += states[i].failed
	}

	attempted := completed + failed
	if attempted == 0 {
		return nil, fmt.Errorf("clusterboot: no bootstrap iterations ran: %w", ctx.Err())
	}
	if float64(failed) > cfg.MaxFailureFraction*float64(attempted) {
		return nil, fmt.Errorf("clusterboot: %d of %d iterations failed (max fraction %g): %w",
			failed, attempted, cfg.MaxFailureFraction, ErrInsufficientIterations)
	}

	return buildResult(labels, reference, tally, cfg.Iterations, completed, failed), nil
}

// runIteration executes one bootstrap iteration against the worker-local
// tally. It reports false when the iteration must be discarded because the
// external clusterer (or embedder) failed.
func runIteration(data [][]float64, reference []int, index *KDTree, ordinal map[int]int,
	clusterer Clusterer, embedder Embedder, rng *rand.Rand, tally *coassignTally) bool {

	replicate := Resample(data, rng)

	repLabels, err := clusterer.Cluster(replicate)
	if err != nil || len(repLabels) != len(replicate) {
		return false
	}

	repSpace := replicate
	if embedder != nil {
		repSpace, err = embedder.Embed(replicate)
		if err != nil || len(repSpace) != len(replicate) {
			return false
		}
	}

	matches, err := MatchReplicate(index, reference, repSpace, repLabels)
	if err != nil {
		return false
	}

	sets := make([][]int, len(matches))
	for i, m := range matches {
		set := make([]int, len(m.RefLabels))
		for j, l := range m.RefLabels {
			set[j] = ordinal[l]
		}
		sets[i] = set
	}
	tally.record(sets)
	return true
}

// distinctLabels returns the sorted distinct labels of a partition.
func distinctLabels(partition []int) []int {
	seen := make(map[int]bool, len(partition))
	labels := make([]int, 0, 8)
	for _, l := range partition {
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	sort.Ints(labels)
	return labels
}
