package clusterboot

// coassignTally accumulates, over bootstrap iterations, how often pairs of
// reference clusters end up co-assigned to a single replicate cluster.
// Counts are indexed by label ordinal and stored in a dense k×k matrix;
// only the upper triangle (i < j) is used. Each worker owns a private
// tally; merge combines them after all iterations finish, so no
// synchronization is needed during a run.
type coassignTally struct {
	k      int
	counts []int  // k*k row-major; counts[i*k+j] for i < j
	seen   []bool // per-iteration scratch: pair already counted
}

func newCoassignTally(k int) *coassignTally {
	return &coassignTally{
		k:      k,
		counts: make([]int, k*k),
		seen:   make([]bool, k*k),
	}
}

// record tallies one completed iteration. Each element of ordinalSets is
// the ascending set of distinct reference-cluster ordinals co-assigned to
// one replicate cluster. Every unordered pair within a set is counted at
// most once per iteration, regardless of how many replicate clusters or
// members support it.
func (t *coassignTally) record(ordinalSets [][]int) {
	var touched []int
	for _, set := range ordinalSets {
		for a := 0; a < len(set); a++ {
			for b := a + 1; b < len(set); b++ {
				i, j := set[a], set[b]
				cell := i*t.k + j
				if !t.seen[cell] {
					t.seen[cell] = true
					t.counts[cell]++
					touched = append(touched, cell)
				}
			}
		}
	}
	for _, cell := range touched {
		t.seen[cell] = false
	}
}

// merge adds other's counts into t. Both tallies must cover the same
// reference partition.
func (t *coassignTally) merge(other *coassignTally) {
	for i, c := range other.counts {
		t.counts[i] += c
	}
}

// count returns the tally for the unordered ordinal pair {i, j}.
// Self-pairs always count zero.
func (t *coassignTally) count(i, j int) int {
	if i == j {
		return 0
	}
	if i > j {
		i, j = j, i
	}
	return t.counts[i*t.k+j]
}
