package clusterboot

// Clusterer partitions a dataset into clusters. Each observation is a
// float64 slice; all observations share the same dimensionality. Cluster
// returns one label per observation. Labels are opaque: any int values may
// be used, they only need to be equal for observations in the same cluster.
//
// The clusterer is treated as a black box. It is invoked once on the
// original dataset to establish the reference partition, then once per
// bootstrap replicate. It does not need to be deterministic.
type Clusterer interface {
	Cluster(data [][]float64) ([]int, error)
}

// ClustererFunc adapts a plain function into a Clusterer.
type ClustererFunc func(data [][]float64) ([]int, error)

func (f ClustererFunc) Cluster(data [][]float64) ([]int, error) { return f(data) }

// Embedder maps a dataset into a (typically lower-dimensional) space used
// for nearest-neighbor re-identification. The clusterer always sees the
// raw data; only the correspondence lookup runs in embedded space.
// The embedding must preserve row order and produce one row per input row.
type Embedder interface {
	Embed(data [][]float64) ([][]float64, error)
}

// EmbedderFunc adapts a plain function into an Embedder.
type EmbedderFunc func(data [][]float64) ([][]float64, error)

func (f EmbedderFunc) Embed(data [][]float64) ([][]float64, error) { return f(data) }
