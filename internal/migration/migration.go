package migration

import (
	"context"

	"featuregraph/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the search run schema. Every statement is
// idempotent so Run may be called on each start.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{version: "1.0.0"}
}

// Version returns the schema version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the DDL executed by Run, in order
func (r *MigrationRunner) Statements() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS search_runs (
			id UUID PRIMARY KEY,
			dataset TEXT NOT NULL,
			target TEXT NOT NULL,
			settings JSONB NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			task VARCHAR(20) NOT NULL,
			termination VARCHAR(20) NOT NULL,
			root_reward DOUBLE PRECISION NOT NULL,
			best_node INTEGER NOT NULL,
			best_reward DOUBLE PRECISION NOT NULL,
			new_columns JSONB NOT NULL DEFAULT '[]',
			replay JSONB NOT NULL DEFAULT '{}',
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS search_nodes (
			run_id UUID NOT NULL REFERENCES search_runs(id) ON DELETE CASCADE,
			node_id INTEGER NOT NULL,
			parent_id INTEGER NOT NULL,
			level INTEGER NOT NULL,
			reward DOUBLE PRECISION NOT NULL,
			cumulative DOUBLE PRECISION NOT NULL,
			improvement DOUBLE PRECISION NOT NULL,
			applied JSONB NOT NULL DEFAULT '[]',
			columns JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, node_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_search_runs_started_at ON search_runs(started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_search_runs_fingerprint ON search_runs(fingerprint)`,
	}
}

// Run executes all database migrations in order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range r.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, err, "migration step failed")
		}
	}
	return nil
}
