package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"featuregraph/domain/core"
	"featuregraph/domain/run"
	"featuregraph/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.NewRunner().Run(context.Background(), db))
	return db
}

func sampleRun() *run.SearchRun {
	return &run.SearchRun{
		ID:          core.NewRunID(),
		Dataset:     "iris.csv",
		Settings:    run.Settings{Target: "species", Budget: 2, Ranking: "reward", Folds: 10},
		Fingerprint: "abc",
		Task:        "classification",
		Termination: "budget",
		RootReward:  0.9,
		BestNode:    1,
		BestReward:  0.95,
		NewColumns:  []string{"sin---petal"},
		Replay:      json.RawMessage(`{"sin---petal": ""}`),
		Nodes: []run.NodeRecord{
			{ID: 0, Parent: -1, Reward: 0.9, Applied: []string{}, Columns: []string{"petal"}},
			{ID: 1, Parent: 0, Level: 1, Reward: 0.95, Cumulative: 0.95, Improvement: 0.05,
				Applied: []string{"sin"}, Columns: []string{"petal", "sin---petal"}},
		},
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
		Duration:  1500 * time.Millisecond,
	}
}

func TestSearchRunRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewSearchRunRepository(db)
	ctx := context.Background()

	sr := sampleRun()
	require.NoError(t, repo.Save(ctx, sr))

	got, err := repo.Get(ctx, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, sr.Settings, got.Settings)
	assert.Equal(t, sr.Nodes, got.Nodes)
	assert.Equal(t, sr.NewColumns, got.NewColumns)
	assert.JSONEq(t, string(sr.Replay), string(got.Replay))
	assert.Equal(t, sr.Duration, got.Duration)
	assert.True(t, sr.StartedAt.Equal(got.StartedAt))

	list, err := repo.List(ctx, 100)
	require.NoError(t, err)
	var found bool
	for _, s := range list {
		if s.ID == sr.ID {
			found = true
			assert.Equal(t, 2, s.Nodes)
			assert.Equal(t, "species", s.Target)
		}
	}
	assert.True(t, found)
}

func TestSearchRunRepositoryNotFound(t *testing.T) {
	repo := NewSearchRunRepository(openTestDB(t))
	_, err := repo.Get(context.Background(), core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestSaveRejectsInvalidRun(t *testing.T) {
	// validation happens before any statement is sent
	repo := NewSearchRunRepository(nil)
	sr := sampleRun()
	sr.Nodes = nil
	assert.Error(t, repo.Save(context.Background(), sr))
}
