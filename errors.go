package clusterboot

import "errors"

var (
	// ErrEmptyDataset is returned when the input dataset has no observations.
	ErrEmptyDataset = errors.New("clusterboot: dataset is empty")

	// ErrDegeneratePartition is returned when the reference partition has
	// fewer than two distinct cluster labels. Pairwise stability is
	// undefined for a single cluster.
	ErrDegeneratePartition = errors.New("clusterboot: reference partition has fewer than 2 clusters")

	// ErrPartitionLength is returned when a partition does not assign
	// exactly one label to every observation.
	ErrPartitionLength = errors.New("clusterboot: partition length does not match dataset")

	// ErrInsufficientIterations is returned when the fraction of bootstrap
	// iterations discarded due to clusterer failures exceeds
	// Config.MaxFailureFraction.
	ErrInsufficientIterations = errors.New("clusterboot: too many bootstrap iterations failed")
)
