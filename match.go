package clusterboot

import (
	"fmt"
	"sort"
)

// Match describes how one replicate cluster maps back onto the reference
// partition after nearest-neighbor re-identification of its members.
type Match struct {
	// ReplicateLabel is the cluster label assigned by the clusterer on the
	// bootstrap replicate.
	ReplicateLabel int

	// MatchedLabel is the reference cluster label held by the plurality of
	// the replicate cluster's re-identified members. Ties are broken by the
	// smallest label value.
	MatchedLabel int

	// Support is the number of members re-identified as MatchedLabel.
	Support int

	// Size is the total number of members in the replicate cluster.
	Size int

	// RefLabels lists the distinct reference labels among the replicate
	// cluster's re-identified members, ascending. Two reference clusters
	// appearing together in one RefLabels set were not separated by this
	// bootstrap draw.
	RefLabels []int
}

// MatchReplicate re-identifies every replicate observation by its nearest
// reference observation and matches each replicate cluster to a reference
// cluster.
//
// index must be built over the reference dataset (in the same space as the
// replicate rows), and refLabels must hold the reference partition, one
// label per reference observation. repLabels is the partition of the
// replicate. Matches are returned in ascending ReplicateLabel order.
//
// A reference cluster that no replicate cluster matches simply does not
// appear as a MatchedLabel; this is expected when a rare cluster is
// undersampled by the bootstrap draw.
func MatchReplicate(index *KDTree, refLabels []int, replicate [][]float64, repLabels []int) ([]Match, error) {
	if index.NumPoints() != len(refLabels) {
		return nil, fmt.Errorf("clusterboot: index has %d points but reference partition has %d labels: %w",
			index.NumPoints(), len(refLabels), ErrPartitionLength)
	}
	if len(replicate) != len(repLabels) {
		return nil, fmt.Errorf("clusterboot: replicate has %d observations but partition has %d labels: %w",
			len(replicate), len(repLabels), ErrPartitionLength)
	}
	if len(replicate) > 0 && len(replicate[0]) != index.NumFeatures() {
		return nil, fmt.Errorf("clusterboot: replicate dimensionality %d does not match index dimensionality %d",
			len(replicate[0]), index.NumFeatures())
	}

	// votes[replicate label][reference label] = member count.
	votes := make(map[int]map[int]int)
	sizes := make(map[int]int)
	for i, obs := range replicate {
		nn, _ := index.Nearest(obs)
		ref := refLabels[nn]
		rep := repLabels[i]
		v := votes[rep]
		if v == nil {
			v = make(map[int]int)
			votes[rep] = v
		}
		v[ref]++
		sizes[rep]++
	}

	repClusters := make([]int, 0, len(votes))
	for rep := range votes {
		repClusters = append(repClusters, rep)
	}
	sort.Ints(repClusters)

	matches := make([]Match, 0, len(repClusters))
	for _, rep := range repClusters {
		v := votes[rep]
		refs := make([]int, 0, len(v))
		for ref := range v {
			refs = append(refs, ref)
		}
		sort.Ints(refs)

		// Plurality vote; scanning labels in ascending order means a tie
		// resolves to the smallest label.
		matched, support := refs[0], v[refs[0]]
		for _, ref := range refs[1:] {
			if v[ref] > support {
				matched, support = ref, v[ref]
			}
		}

		matches = append(matches, Match{
			ReplicateLabel: rep,
			MatchedLabel:   matched,
			Support:        support,
			Size:           sizes[rep],
			RefLabels:      refs,
		})
	}

	return matches, nil
}
