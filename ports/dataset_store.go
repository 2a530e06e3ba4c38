package ports

import (
	"context"

	"featuregraph/domain/dataset"
)

// DatasetReader loads a tabular dataset from a file
type DatasetReader interface {
	Read(ctx context.Context, path string) (*dataset.Table, error)
}

// DatasetWriter stores a tabular dataset to a file
type DatasetWriter interface {
	Write(ctx context.Context, path string, table *dataset.Table) error
}
