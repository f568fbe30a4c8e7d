package clusterboot

import "gonum.org/v1/gonum/mat"

// Result contains the output of a stability run.
type Result struct {
	// Labels lists the distinct reference cluster labels, ascending.
	// Row/column i of Merge corresponds to Labels[i].
	Labels []int

	// Reference is the reference partition the run was measured against,
	// one label per original observation.
	Reference []int

	// Merge holds pairwise merge probabilities in [0, 1]: the fraction of
	// completed bootstrap iterations in which the two reference clusters
	// were co-assigned to a single replicate cluster. Values near 0 mean
	// the pair is stably separated; values near 1 mean the pair is
	// indistinguishable under resampling noise and is a merge candidate.
	// The diagonal is zero and carries no meaning.
	Merge *mat.SymDense

	// Requested is the number of bootstrap iterations asked for,
	// Completed the number that produced a tally, and Failed the number
	// discarded due to clusterer errors. Completed + Failed < Requested
	// indicates the run was cut short by the context.
	Requested int
	Completed int
	Failed    int

	ordinal map[int]int // reference label → Merge row/column
}

// MergeProbability returns the merge probability for the reference label
// pair {a, b}. The second return is false for unknown labels and for
// self-pairs, which are not reported.
func (r *Result) MergeProbability(a, b int) (float64, bool) {
	if a == b {
		return 0, false
	}
	i, ok := r.ordinal[a]
	if !ok {
		return 0, false
	}
	j, ok := r.ordinal[b]
	if !ok {
		return 0, false
	}
	return r.Merge.At(i, j), true
}

// buildResult finalizes a merged tally into a read-only Result, dividing
// by the number of completed iterations only.
func buildResult(labels, reference []int, tally *coassignTally, requested, completed, failed int) *Result {
	k := len(labels)
	merge := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			merge.SetSym(i, j, float64(tally.count(i, j))/float64(completed))
		}
	}

	ordinal := make(map[int]int, k)
	for i, l := range labels {
		ordinal[l] = i
	}

	return &Result{
		Labels:    labels,
		Reference: reference,
		Merge:     merge,
		Requested: requested,
		Completed: completed,
		Failed:    failed,
		ordinal:   ordinal,
	}
}
