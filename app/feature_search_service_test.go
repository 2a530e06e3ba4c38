package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/domain/run"
	"featuregraph/internal/errors"
	"featuregraph/internal/learn"
	"featuregraph/internal/search"
	"featuregraph/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type widthEvaluator struct{}

func (widthEvaluator) Score(_ context.Context, X [][]float64) (float64, error) {
	return float64(len(X[0])), nil
}

func widthEvaluators() ServiceOption {
	return WithEvaluatorFactory(func(learn.Task, []float64, int, int64) search.Evaluator { return widthEvaluator{} })
}

func ordersTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	cfg := testkit.DefaultShoppingConfig()
	cfg.Orders = n
	table, err := testkit.NewShoppingDataGenerator(cfg).GenerateTable()
	require.NoError(t, err)
	return table
}

func searchConfig(budget int) search.Config {
	cfg := search.DefaultConfig()
	cfg.Target = "returned"
	cfg.GroupColumn = "segment"
	cfg.DateColumn = "order_date"
	cfg.Budget = budget
	return cfg
}

func TestFeatureSearchServiceRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	table := ordersTable(t, 40)

	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "orders.csv").Return(table, nil)
	writer := &MockDatasetWriter{}
	writer.On("Write", ctx, "out.csv", mock.Anything).Return(nil)
	runs := &MockSearchRunRepository{}
	runs.On("Save", ctx, mock.Anything).Return(nil)

	svc := NewFeatureSearchService(reader, writer, runs, widthEvaluators())
	req := SearchRequest{
		InputPath:  "orders.csv",
		Types:      testkit.ShoppingTypes,
		Config:     searchConfig(20),
		OutputPath: "out.csv",
		ReplayPath: filepath.Join(dir, "replay.json"),
		ReportPath: filepath.Join(dir, "report.md"),
	}
	resp, err := svc.Run(ctx, req)
	require.NoError(t, err)

	reader.AssertExpectations(t)
	writer.AssertExpectations(t)
	runs.AssertExpectations(t)
	assert.True(t, resp.Persisted)
	assert.Equal(t, search.TerminationBudget, resp.Result.Termination)

	// the persisted record mirrors the graph
	require.Len(t, runs.saved, 1)
	rec := runs.saved[0]
	assert.Equal(t, resp.RunID, rec.ID)
	assert.Equal(t, "orders.csv", rec.Dataset)
	assert.Len(t, rec.Nodes, resp.Result.Graph.Len())
	assert.Equal(t, resp.Result.Best.ID, rec.BestNode)
	assert.Equal(t, "classification", rec.Task)
	assert.NoError(t, rec.Validate())
	assert.Equal(t, run.Fingerprint(table, testkit.ShoppingTypes, rec.Settings), rec.Fingerprint)

	written := writer.written["out.csv"]
	require.NotNil(t, written)
	assert.Equal(t, append(append([]string{}, table.Columns...), resp.Result.NewColumns...), written.Columns)

	data, err := os.ReadFile(req.ReplayPath)
	require.NoError(t, err)
	var replay search.ReplayRecord
	require.NoError(t, json.Unmarshal(data, &replay))
	assert.Equal(t, resp.Result.Replay, replay)

	md, err := os.ReadFile(req.ReportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Feature search report"))
}

func TestFeatureSearchServiceWithoutRepository(t *testing.T) {
	ctx := context.Background()
	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "orders.csv").Return(ordersTable(t, 30), nil)

	svc := NewFeatureSearchService(reader, &MockDatasetWriter{}, nil, widthEvaluators())
	resp, err := svc.Run(ctx, SearchRequest{InputPath: "orders.csv", Config: searchConfig(6)})
	require.NoError(t, err)
	assert.False(t, resp.Persisted)
	assert.Equal(t, 6, resp.Result.Graph.Derived())

	_, err = svc.ListRuns(ctx, 10)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestFeatureSearchServiceErrors(t *testing.T) {
	ctx := context.Background()
	table := ordersTable(t, 20)

	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "missing.csv").Return(nil, fmt.Errorf("CSV file not found"))
	reader.On("Read", ctx, "orders.csv").Return(table, nil)
	svc := NewFeatureSearchService(reader, &MockDatasetWriter{}, nil, widthEvaluators())

	_, err := svc.Run(ctx, SearchRequest{InputPath: "missing.csv", Config: searchConfig(5)})
	assert.Equal(t, errors.CodeIOError, errors.GetCode(err))

	_, err = svc.Run(ctx, SearchRequest{InputPath: "orders.csv", Types: testkit.ShoppingTypes[:2], Config: searchConfig(5)})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.ErrorIs(t, err, core.ErrInvalidFeatureTypes)

	cfg := searchConfig(5)
	cfg.Target = "nope"
	_, err = svc.Run(ctx, SearchRequest{InputPath: "orders.csv", Config: cfg})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.True(t, core.IsNotFoundError(err))
}

func TestFeatureSearchServiceSaveFailure(t *testing.T) {
	ctx := context.Background()
	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "orders.csv").Return(ordersTable(t, 20), nil)
	runs := &MockSearchRunRepository{}
	runs.On("Save", ctx, mock.Anything).Return(fmt.Errorf("connection refused"))

	svc := NewFeatureSearchService(reader, &MockDatasetWriter{}, runs, widthEvaluators())
	_, err := svc.Run(ctx, SearchRequest{InputPath: "orders.csv", Config: searchConfig(5)})
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestApplyReplay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	table := ordersTable(t, 30)

	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "orders.csv").Return(table, nil)
	writer := &MockDatasetWriter{}
	writer.On("Write", ctx, mock.Anything, mock.Anything).Return(nil)
	svc := NewFeatureSearchService(reader, writer, nil, widthEvaluators())

	replayPath := filepath.Join(dir, "replay.json")
	resp, err := svc.Run(ctx, SearchRequest{
		InputPath:  "orders.csv",
		Types:      testkit.ShoppingTypes,
		Config:     searchConfig(8),
		ReplayPath: replayPath,
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Result.NewColumns)

	out, err := svc.ApplyReplay(ctx, "orders.csv", replayPath, "replayed.csv")
	require.NoError(t, err)
	assert.ElementsMatch(t, resp.Result.Data.Columns, out.Columns)
	for _, col := range resp.Result.NewColumns {
		want, _ := resp.Result.Data.Column(col)
		got, err := out.Column(col)
		require.NoError(t, err)
		assert.Equal(t, want, got, col)
	}
	assert.Same(t, out, writer.written["replayed.csv"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[1,2]"), 0o644))
	_, err = svc.ApplyReplay(ctx, "orders.csv", bad, "")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGetRun(t *testing.T) {
	ctx := context.Background()
	id := core.NewRunID()
	stored := &run.SearchRun{ID: id}

	runs := &MockSearchRunRepository{}
	runs.On("Get", ctx, id).Return(stored, nil)
	missing := core.NewRunID()
	runs.On("Get", ctx, missing).Return(nil, core.NewRunNotFoundError(missing))
	runs.On("List", ctx, 5).Return([]run.Summary{{ID: id}}, nil)

	svc := NewFeatureSearchService(&MockDatasetReader{}, &MockDatasetWriter{}, runs)
	got, err := svc.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Same(t, stored, got)

	_, err = svc.GetRun(ctx, missing)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	list, err := svc.ListRuns(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFeatureSearchServiceWithForest(t *testing.T) {
	if testing.Short() {
		t.Skip("fits random forests")
	}
	ctx := context.Background()
	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "orders.csv").Return(ordersTable(t, 60), nil)

	svc := NewFeatureSearchService(reader, &MockDatasetWriter{}, nil, WithForestOptions(learn.Trees(5), learn.Workers(2)))
	cfg := searchConfig(3)
	cfg.Folds = 3
	resp, err := svc.Run(ctx, SearchRequest{InputPath: "orders.csv", Types: testkit.ShoppingTypes, Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Result.Graph.Len())
	assert.GreaterOrEqual(t, resp.Result.Best.Reward, 0.0)
	assert.LessOrEqual(t, resp.Result.Best.Reward, 1.0)
}
