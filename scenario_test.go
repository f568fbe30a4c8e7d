package clusterboot

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// kmeans is a minimal deterministic Lloyd's k-means with k-means++ style
// seeding, used as the external clusterer in scenario tests. It is
// deliberately kept out of the library API: the clusterer is an opaque
// collaborator there.
type kmeans struct {
	k     int
	seed  int64
	iters int
}

func (km kmeans) Cluster(data [][]float64) ([]int, error) {
	rng := rand.New(rand.NewSource(km.seed))
	n := len(data)
	metric := EuclideanMetric{}

	// Seeding: first centroid uniform, the rest sampled proportionally to
	// squared distance from the nearest chosen centroid.
	means := make([][]float64, 0, km.k)
	means = append(means, append([]float64(nil), data[rng.Intn(n)]...))
	d2 := make([]float64, n)
	for len(means) < km.k {
		var sum float64
		for i, p := range data {
			best := math.Inf(1)
			for _, m := range means {
				if d := metric.ReducedDistance(p, m); d < best {
					best = d
				}
			}
			d2[i] = best
			sum += best
		}
		target := rng.Float64() * sum
		idx := 0
		for acc := d2[0]; acc < target && idx < n-1; {
			idx++
			acc += d2[idx]
		}
		means = append(means, append([]float64(nil), data[idx]...))
	}

	labels := make([]int, n)
	counts := make([]int, km.k)
	for it := 0; it < km.iters; it++ {
		changed := false
		for i, p := range data {
			best, bi := math.Inf(1), 0
			for j, m := range means {
				if d := metric.ReducedDistance(p, m); d < best {
					best, bi = d, j
				}
			}
			if labels[i] != bi {
				labels[i] = bi
				changed = true
			}
		}
		if !changed && it > 0 {
			break
		}
		sums := make([][]float64, km.k)
		for j := range sums {
			sums[j] = make([]float64, len(data[0]))
			counts[j] = 0
		}
		for i, p := range data {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for j := range means {
			// An empty cluster keeps its previous centroid.
			if counts[j] > 0 {
				floats.Scale(1/float64(counts[j]), sums[j])
				means[j] = sums[j]
			}
		}
	}
	return labels, nil
}

// gaussianPair returns n points from N(-mu, 1) followed by n points from
// N(+mu, 1) along the first of two dimensions.
func gaussianPair(n int, mu float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([][]float64, 0, 2*n)
	for i := 0; i < n; i++ {
		data = append(data, []float64{-mu + rng.NormFloat64(), rng.NormFloat64()})
	}
	for i := 0; i < n; i++ {
		data = append(data, []float64{mu + rng.NormFloat64(), rng.NormFloat64()})
	}
	return data
}

func TestScenario_WellSeparatedClustersAreStable(t *testing.T) {
	data := gaussianPair(50, 10, 101)
	cfg := DefaultConfig()
	cfg.Iterations = 100
	cfg.Seed = 11

	result, err := Stability(data, kmeans{k: 2, seed: 3, iters: 50}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Labels) != 2 {
		t.Fatalf("expected 2 reference clusters, got %d", len(result.Labels))
	}
	if p := result.Merge.At(0, 1); p >= 0.05 {
		t.Errorf("well-separated pair: merge probability %v, want < 0.05", p)
	}
}

func TestScenario_OverlappingClustersAreUnstable(t *testing.T) {
	data := gaussianPair(50, 0.1, 101)
	cfg := DefaultConfig()
	cfg.Iterations = 100
	cfg.Seed = 11

	result, err := Stability(data, kmeans{k: 2, seed: 3, iters: 50}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Labels) != 2 {
		t.Fatalf("expected 2 reference clusters, got %d", len(result.Labels))
	}
	if p := result.Merge.At(0, 1); p <= 0.5 {
		t.Errorf("overlapping pair: merge probability %v, want > 0.5", p)
	}
}

func TestScenario_RareClusterDoesNotContaminateStablePair(t *testing.T) {
	// Two well-separated populations plus a small third population sitting
	// on top of the right one. The rare cluster is genuinely unstable, but
	// pairwise tallying must keep the (left, right) reading clean.
	rng := rand.New(rand.NewSource(55))
	data := make([][]float64, 0, 105)
	for i := 0; i < 50; i++ {
		data = append(data, []float64{-10 + rng.NormFloat64(), rng.NormFloat64()})
	}
	for i := 0; i < 50; i++ {
		data = append(data, []float64{10 + rng.NormFloat64(), rng.NormFloat64()})
	}
	for i := 0; i < 5; i++ {
		data = append(data, []float64{10.2 + rng.NormFloat64(), rng.NormFloat64()})
	}

	// Explicit reference partition: left=0, right=1, rare=2.
	reference := make([]int, 105)
	for i := 50; i < 100; i++ {
		reference[i] = 1
	}
	for i := 100; i < 105; i++ {
		reference[i] = 2
	}

	cfg := DefaultConfig()
	cfg.Iterations = 100
	cfg.Seed = 21

	result, err := StabilityFromPartition(context.Background(), data, reference,
		kmeans{k: 3, seed: 3, iters: 50}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	leftRight, _ := result.MergeProbability(0, 1)
	leftRare, _ := result.MergeProbability(0, 2)
	rightRare, _ := result.MergeProbability(1, 2)

	if leftRight >= 0.05 {
		t.Errorf("(left, right): merge probability %v, want < 0.05", leftRight)
	}
	if leftRare >= 0.05 {
		t.Errorf("(left, rare): merge probability %v, want < 0.05", leftRare)
	}
	// The rare population is interleaved with the right one, so virtually
	// every draw fails to separate them.
	if rightRare <= 0.5 {
		t.Errorf("(right, rare): merge probability %v, want > 0.5", rightRare)
	}
}
