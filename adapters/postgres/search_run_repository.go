package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"featuregraph/domain/core"
	"featuregraph/domain/run"
	"featuregraph/ports"

	"github.com/jmoiron/sqlx"
)

// searchRunRepository stores runs in search_runs and their graphs in
// search_nodes
type searchRunRepository struct {
	db *sqlx.DB
}

// NewSearchRunRepository creates a new PostgreSQL search run repository
func NewSearchRunRepository(db *sqlx.DB) ports.SearchRunRepository {
	return &searchRunRepository{db: db}
}

type runRow struct {
	ID          string    `db:"id"`
	Dataset     string    `db:"dataset"`
	Target      string    `db:"target"`
	Settings    []byte    `db:"settings"`
	Fingerprint string    `db:"fingerprint"`
	Task        string    `db:"task"`
	Termination string    `db:"termination"`
	RootReward  float64   `db:"root_reward"`
	BestNode    int       `db:"best_node"`
	BestReward  float64   `db:"best_reward"`
	NewColumns  []byte    `db:"new_columns"`
	Replay      []byte    `db:"replay"`
	StartedAt   time.Time `db:"started_at"`
	DurationMS  int64     `db:"duration_ms"`
}

type nodeRow struct {
	NodeID      int     `db:"node_id"`
	ParentID    int     `db:"parent_id"`
	Level       int     `db:"level"`
	Reward      float64 `db:"reward"`
	Cumulative  float64 `db:"cumulative"`
	Improvement float64 `db:"improvement"`
	Applied     []byte  `db:"applied"`
	Columns     []byte  `db:"columns"`
}

// Save inserts a run and all of its nodes in one transaction
func (r *searchRunRepository) Save(ctx context.Context, sr *run.SearchRun) error {
	if err := sr.Validate(); err != nil {
		return err
	}
	settingsJSON, err := json.Marshal(sr.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	columnsJSON, err := json.Marshal(sr.NewColumns)
	if err != nil {
		return fmt.Errorf("failed to marshal new columns: %w", err)
	}
	replay := sr.Replay
	if len(replay) == 0 {
		replay = json.RawMessage("{}")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO search_runs (
			id, dataset, target, settings, fingerprint, task, termination,
			root_reward, best_node, best_reward, new_columns, replay, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, sr.ID.String(), sr.Dataset, sr.Settings.Target, settingsJSON, sr.Fingerprint, sr.Task, sr.Termination,
		sr.RootReward, sr.BestNode, sr.BestReward, columnsJSON, []byte(replay), sr.StartedAt, sr.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to insert search run: %w", err)
	}

	for _, n := range sr.Nodes {
		applied, err := json.Marshal(n.Applied)
		if err != nil {
			return fmt.Errorf("failed to marshal applied transformations: %w", err)
		}
		cols, err := json.Marshal(n.Columns)
		if err != nil {
			return fmt.Errorf("failed to marshal node columns: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO search_nodes (
				run_id, node_id, parent_id, level, reward, cumulative, improvement, applied, columns
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, sr.ID.String(), n.ID, n.Parent, n.Level, n.Reward, n.Cumulative, n.Improvement, applied, cols)
		if err != nil {
			return fmt.Errorf("failed to insert node %d: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search run: %w", err)
	}
	return nil
}

// Get loads a run with its nodes ordered by id
func (r *searchRunRepository) Get(ctx context.Context, id core.RunID) (*run.SearchRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, dataset, target, settings, fingerprint, task, termination,
			root_reward, best_node, best_reward, new_columns, replay, started_at, duration_ms
		FROM search_runs WHERE id = $1
	`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewRunNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get search run: %w", err)
	}

	sr := &run.SearchRun{
		ID:          core.RunID(row.ID),
		Dataset:     row.Dataset,
		Fingerprint: row.Fingerprint,
		Task:        row.Task,
		Termination: row.Termination,
		RootReward:  row.RootReward,
		BestNode:    row.BestNode,
		BestReward:  row.BestReward,
		Replay:      json.RawMessage(row.Replay),
		StartedAt:   row.StartedAt,
		Duration:    time.Duration(row.DurationMS) * time.Millisecond,
	}
	if err := json.Unmarshal(row.Settings, &sr.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := json.Unmarshal(row.NewColumns, &sr.NewColumns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new columns: %w", err)
	}

	var nodes []nodeRow
	err = r.db.SelectContext(ctx, &nodes, `
		SELECT node_id, parent_id, level, reward, cumulative, improvement, applied, columns
		FROM search_nodes WHERE run_id = $1 ORDER BY node_id
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get search nodes: %w", err)
	}
	for _, n := range nodes {
		rec := run.NodeRecord{
			ID:          n.NodeID,
			Parent:      n.ParentID,
			Level:       n.Level,
			Reward:      n.Reward,
			Cumulative:  n.Cumulative,
			Improvement: n.Improvement,
		}
		if err := json.Unmarshal(n.Applied, &rec.Applied); err != nil {
			return nil, fmt.Errorf("failed to unmarshal applied transformations: %w", err)
		}
		if err := json.Unmarshal(n.Columns, &rec.Columns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node columns: %w", err)
		}
		sr.Nodes = append(sr.Nodes, rec)
	}
	return sr, nil
}

// List returns run summaries, most recent first
func (r *searchRunRepository) List(ctx context.Context, limit int) ([]run.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []struct {
		ID          string    `db:"id"`
		Dataset     string    `db:"dataset"`
		Target      string    `db:"target"`
		Termination string    `db:"termination"`
		RootReward  float64   `db:"root_reward"`
		BestReward  float64   `db:"best_reward"`
		Nodes       int       `db:"nodes"`
		StartedAt   time.Time `db:"started_at"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.dataset, r.target, r.termination, r.root_reward, r.best_reward,
			(SELECT COUNT(*) FROM search_nodes n WHERE n.run_id = r.id) AS nodes,
			r.started_at
		FROM search_runs r
		ORDER BY r.started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list search runs: %w", err)
	}

	summaries := make([]run.Summary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, run.Summary{
			ID:          core.RunID(row.ID),
			Dataset:     row.Dataset,
			Target:      row.Target,
			Termination: row.Termination,
			RootReward:  row.RootReward,
			BestReward:  row.BestReward,
			Nodes:       row.Nodes,
			StartedAt:   row.StartedAt,
		})
	}
	return summaries, nil
}
