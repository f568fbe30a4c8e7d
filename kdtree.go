package clusterboot

import (
	"math"
	"sort"
)

// KDTree is a KD-tree over a fixed reference dataset, used to re-identify
// bootstrap replicate observations by their nearest reference observation.
// Points are stored in a flat row-major array and reordered internally via
// an index permutation array.
//
// The tree is stored as a complete binary tree in array form:
//   - node i has children at 2*i+1 and 2*i+2
//   - node bounds are stored as min/max per dimension per node
//
// Pruning requires a metric whose lower bound decomposes along axes
// (Euclidean, Manhattan, Chebyshev). For any other metric, including
// CosineMetric and custom DistanceFunc values, Nearest degrades to an
// exhaustive scan over the reference data.
type KDTree struct {
	data     []float64 // flat row-major point data (n * dims)
	n        int       // number of points
	dims     int       // dimensionality
	leafSize int
	metric   DistanceMetric
	p        float64 // Minkowski exponent for bound computation
	brute    bool    // metric has no axis-decomposable bound; scan instead
	idxArray []int   // permutation: tree-order position → original index
	nodes    []kdNode
	// nodeBoundsMin[node*dims + j] = min value of feature j in node
	nodeBoundsMin []float64
	// nodeBoundsMax[node*dims + j] = max value of feature j in node
	nodeBoundsMax []float64
}

// kdNode describes one tree node as a range into the permutation array.
type kdNode struct {
	start, end int
	leaf       bool
}

// minkowskiExponent reports the Minkowski exponent usable for KD-tree
// bound computation, or false for metrics that cannot be pruned this way.
func minkowskiExponent(m DistanceMetric) (float64, bool) {
	switch m.(type) {
	case EuclideanMetric:
		return 2.0, true
	case ManhattanMetric:
		return 1.0, true
	case ChebyshevMetric:
		return math.Inf(1), true
	default:
		return 0, false
	}
}

// NewKDTree builds a KD-tree from data with one row per observation.
// All rows must share the same dimensionality. leafSize controls the max
// points per leaf node.
func NewKDTree(data [][]float64, metric DistanceMetric, leafSize int) *KDTree {
	n := len(data)
	dims := 0
	if n > 0 {
		dims = len(data[0])
	}
	flat := make([]float64, n*dims)
	for i, row := range data {
		copy(flat[i*dims:], row)
	}
	return newKDTreeFlat(flat, n, dims, metric, leafSize)
}

// newKDTreeFlat builds a KD-tree from flat row-major data. The slice is
// retained, not copied.
func newKDTreeFlat(flat []float64, n, dims int, metric DistanceMetric, leafSize int) *KDTree {
	if leafSize < 1 {
		leafSize = 1
	}

	t := &KDTree{
		data:     flat,
		n:        n,
		dims:     dims,
		leafSize: leafSize,
		metric:   metric,
	}

	p, ok := minkowskiExponent(metric)
	if !ok {
		t.brute = true
		return t
	}
	t.p = p

	idxArray := make([]int, n)
	for i := range idxArray {
		idxArray[i] = i
	}
	t.idxArray = idxArray

	maxNodes := kdMaxNodes(n, leafSize)
	t.nodes = make([]kdNode, maxNodes)
	t.nodeBoundsMin = make([]float64, maxNodes*dims)
	t.nodeBoundsMax = make([]float64, maxNodes*dims)

	if n > 0 {
		t.buildNode(0, 0, n)
	}

	return t
}

// kdMaxNodes returns an upper bound on the number of nodes needed for a
// binary tree with n points and the given leaf size.
func kdMaxNodes(n, leafSize int) int {
	if n == 0 {
		return 1
	}
	leaves := (n + leafSize - 1) / leafSize
	depth := 0
	v := 1
	for v < leaves {
		v *= 2
		depth++
	}
	return (1 << (depth + 1)) - 1 + 2 // +2 for safety margin
}

// buildNode recursively builds the tree for points in idxArray[start:end].
func (t *KDTree) buildNode(nodeID, start, end int) {
	// Grow arrays if needed (shouldn't happen with a good upper bound).
	for nodeID >= len(t.nodes) {
		t.nodes = append(t.nodes, kdNode{})
		t.nodeBoundsMin = append(t.nodeBoundsMin, make([]float64, t.dims)...)
		t.nodeBoundsMax = append(t.nodeBoundsMax, make([]float64, t.dims)...)
	}

	t.computeNodeBounds(nodeID, start, end)

	count := end - start
	if count <= t.leafSize {
		t.nodes[nodeID] = kdNode{start: start, end: end, leaf: true}
		return
	}
	t.nodes[nodeID] = kdNode{start: start, end: end}

	// Split on the dimension with the largest spread, at the median.
	splitDim := t.maxSpreadDim(nodeID)
	t.sortByDimension(start, end, splitDim)
	mid := (start + end) / 2

	t.buildNode(2*nodeID+1, start, mid)
	t.buildNode(2*nodeID+2, mid, end)
}

// computeNodeBounds records the axis-aligned bounding box of
// idxArray[start:end] for the given node.
func (t *KDTree) computeNodeBounds(nodeID, start, end int) {
	base := nodeID * t.dims
	for j := 0; j < t.dims; j++ {
		t.nodeBoundsMin[base+j] = math.Inf(1)
		t.nodeBoundsMax[base+j] = math.Inf(-1)
	}
	for i := start; i < end; i++ {
		pt := t.point(t.idxArray[i])
		for j := 0; j < t.dims; j++ {
			if pt[j] < t.nodeBoundsMin[base+j] {
				t.nodeBoundsMin[base+j] = pt[j]
			}
			if pt[j] > t.nodeBoundsMax[base+j] {
				t.nodeBoundsMax[base+j] = pt[j]
			}
		}
	}
}

// maxSpreadDim returns the dimension with the largest bound spread in node.
func (t *KDTree) maxSpreadDim(nodeID int) int {
	base := nodeID * t.dims
	dim := 0
	spread := math.Inf(-1)
	for j := 0; j < t.dims; j++ {
		if s := t.nodeBoundsMax[base+j] - t.nodeBoundsMin[base+j]; s > spread {
			spread = s
			dim = j
		}
	}
	return dim
}

// sortByDimension sorts idxArray[start:end] by the given feature dimension.
func (t *KDTree) sortByDimension(start, end, dim int) {
	seg := t.idxArray[start:end]
	sort.SliceStable(seg, func(a, b int) bool {
		return t.data[seg[a]*t.dims+dim] < t.data[seg[b]*t.dims+dim]
	})
}

func (t *KDTree) point(i int) []float64 {
	return t.data[i*t.dims : (i+1)*t.dims]
}

// NumPoints returns the number of reference observations in the tree.
func (t *KDTree) NumPoints() int { return t.n }

// NumFeatures returns the dimensionality of each observation.
func (t *KDTree) NumFeatures() int { return t.dims }

// Nearest returns the index of the reference observation closest to q
// under the tree's metric, and the distance to it. For an empty tree it
// returns (-1, +Inf). Ties are broken deterministically: the exhaustive
// path takes the smallest index, the tree path the first point reached
// in its fixed traversal order.
func (t *KDTree) Nearest(q []float64) (int, float64) {
	if t.n == 0 {
		return -1, math.Inf(1)
	}
	if t.brute {
		return t.nearestBrute(q)
	}

	bestIdx := -1
	bestRdist := math.Inf(1)
	t.searchNode(0, q, &bestIdx, &bestRdist)
	return bestIdx, t.rdistToDist(bestRdist)
}

// nearestBrute scans every reference point with the raw metric.
func (t *KDTree) nearestBrute(q []float64) (int, float64) {
	bestIdx := -1
	best := math.Inf(1)
	for i := 0; i < t.n; i++ {
		if d := t.metric.Distance(q, t.point(i)); d < best {
			best = d
			bestIdx = i
		}
	}
	return bestIdx, best
}

// searchNode performs a single-tree 1-NN traversal, descending into the
// nearer child first and pruning subtrees whose bounding box cannot beat
// the current best reduced distance.
func (t *KDTree) searchNode(nodeID int, q []float64, bestIdx *int, bestRdist *float64) {
	node := t.nodes[nodeID]

	if node.leaf {
		for i := node.start; i < node.end; i++ {
			ptIdx := t.idxArray[i]
			rd := t.metric.ReducedDistance(q, t.point(ptIdx))
			if rd < *bestRdist {
				*bestRdist = rd
				*bestIdx = ptIdx
			}
		}
		return
	}

	left := 2*nodeID + 1
	right := 2*nodeID + 2
	leftRdist := t.minRdistPoint(left, q)
	rightRdist := t.minRdistPoint(right, q)

	nearChild, farChild := left, right
	nearRdist, farRdist := leftRdist, rightRdist
	if rightRdist < leftRdist {
		nearChild, farChild = right, left
		nearRdist, farRdist = rightRdist, leftRdist
	}

	if nearRdist < *bestRdist {
		t.searchNode(nearChild, q, bestIdx, bestRdist)
	}
	if farRdist < *bestRdist {
		t.searchNode(farChild, q, bestIdx, bestRdist)
	}
}

// minRdistPoint returns a lower bound in reduced-distance space on the
// distance between a point and any point in the given node.
func (t *KDTree) minRdistPoint(nodeID int, q []float64) float64 {
	base := nodeID * t.dims
	var rdist float64
	for j := 0; j < t.dims; j++ {
		lo := t.nodeBoundsMin[base+j]
		hi := t.nodeBoundsMax[base+j]
		var d float64
		if q[j] < lo {
			d = lo - q[j]
		} else if q[j] > hi {
			d = q[j] - hi
		}
		switch {
		case math.IsInf(t.p, 1): // Chebyshev: max per-dim gap
			if d > rdist {
				rdist = d
			}
		case t.p == 2:
			rdist += d * d
		default:
			rdist += math.Pow(d, t.p)
		}
	}
	return rdist
}

// rdistToDist converts a reduced distance back to true distance.
func (t *KDTree) rdistToDist(rdist float64) float64 {
	if t.p == 2 {
		return math.Sqrt(rdist)
	}
	// Manhattan and Chebyshev reduced distances equal true distances.
	return rdist
}
