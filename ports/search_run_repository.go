package ports

import (
	"context"

	"featuregraph/domain/core"
	"featuregraph/domain/run"
)

// SearchRunRepository persists search runs and their graphs
type SearchRunRepository interface {
	Save(ctx context.Context, r *run.SearchRun) error
	Get(ctx context.Context, id core.RunID) (*run.SearchRun, error)
	// List returns the most recent runs first
	List(ctx context.Context, limit int) ([]run.Summary, error)
}
