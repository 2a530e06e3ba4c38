package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/domain/run"
	"featuregraph/internal"
	"featuregraph/internal/errors"
	"featuregraph/internal/learn"
	"featuregraph/internal/report"
	"featuregraph/internal/search"
	"featuregraph/ports"
)

// FeatureSearchService reads a dataset, runs the transformation search and
// stores its artifacts
type FeatureSearchService struct {
	reader ports.DatasetReader
	writer ports.DatasetWriter
	runs   ports.SearchRunRepository // nil disables persistence

	forest     []learn.ForestOption
	evaluators search.EvaluatorFactory
	log        *internal.Logger
}

// ServiceOption customizes a FeatureSearchService
type ServiceOption func(*FeatureSearchService)

// WithForestOptions sets the random forest used to score nodes
func WithForestOptions(opts ...learn.ForestOption) ServiceOption {
	return func(s *FeatureSearchService) { s.forest = opts }
}

// WithEvaluatorFactory replaces the forest evaluator entirely
func WithEvaluatorFactory(f search.EvaluatorFactory) ServiceOption {
	return func(s *FeatureSearchService) { s.evaluators = f }
}

// WithServiceLogger sets the logger
func WithServiceLogger(l *internal.Logger) ServiceOption {
	return func(s *FeatureSearchService) { s.log = l }
}

// SearchRequest defines one search run
type SearchRequest struct {
	InputPath string
	// Types holds one entry per input column; inferred when empty
	Types  []dataset.FeatureType
	Config search.Config

	OutputPath string // augmented dataset, optional
	ReplayPath string // replay record JSON, optional
	ReportPath string // .html or .md report, optional
}

// SearchResponse is the outcome of a search run
type SearchResponse struct {
	RunID     core.RunID
	Result    *search.Result
	Record    *run.SearchRun
	Persisted bool
}

// NewFeatureSearchService creates a search service. runs may be nil.
func NewFeatureSearchService(reader ports.DatasetReader, writer ports.DatasetWriter, runs ports.SearchRunRepository, opts ...ServiceOption) *FeatureSearchService {
	s := &FeatureSearchService{
		reader: reader,
		writer: writer,
		runs:   runs,
		log:    internal.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("FeatureSearch")
	return s
}

// Run executes a search and writes the requested artifacts
func (s *FeatureSearchService) Run(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	started := time.Now()

	table, err := s.reader.Read(ctx, req.InputPath)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIOError, err, "failed to read dataset")
	}
	types, err := resolveTypes(table, req.Types)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "invalid feature types")
	}

	evaluators := s.evaluators
	if evaluators == nil {
		evaluators = search.ForestEvaluators(s.forest...)
	}
	searcher, err := search.New(table, types, req.Config,
		search.WithEvaluatorFactory(evaluators), search.WithLogger(s.log))
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "invalid search request")
	}

	runID := core.NewRunID()
	s.log.Info("run %s: searching %s for target %s (budget %d)", runID, req.InputPath, req.Config.Target, req.Config.Budget)

	result, err := searcher.Run(ctx)
	if err != nil {
		code := errors.CodeInternalError
		if core.IsInputError(err) {
			code = errors.CodeInvalidInput
		}
		return nil, errors.WithCode(code, err, "search failed")
	}
	s.log.Info("run %s: %s after %d nodes, reward %.6f -> %.6f",
		runID, result.Termination, result.Graph.Derived(), result.Root.Reward, result.Best.Reward)

	settings := run.Settings{
		Target:      req.Config.Target,
		GroupColumn: req.Config.GroupColumn,
		DateColumn:  req.Config.DateColumn,
		Budget:      req.Config.Budget,
		Ranking:     string(req.Config.Ranking),
		Folds:       req.Config.Folds,
		Seed:        req.Config.Seed,
	}
	record, err := NewRunRecord(runID, req.InputPath, settings, run.Fingerprint(table, types, settings), result, started)
	if err != nil {
		return nil, err
	}

	if err := s.writeArtifacts(ctx, req, record, result); err != nil {
		return nil, err
	}

	resp := &SearchResponse{RunID: runID, Result: result, Record: record}
	if s.runs != nil {
		if err := s.runs.Save(ctx, record); err != nil {
			return nil, errors.WithCode(errors.CodeDatabaseError, err, "failed to save search run")
		}
		resp.Persisted = true
	}
	return resp, nil
}

func (s *FeatureSearchService) writeArtifacts(ctx context.Context, req SearchRequest, record *run.SearchRun, result *search.Result) error {
	if req.OutputPath != "" {
		if err := s.writer.Write(ctx, req.OutputPath, result.Data); err != nil {
			return errors.WithCode(errors.CodeIOError, err, "failed to write augmented dataset")
		}
	}
	if req.ReplayPath != "" {
		data, err := json.MarshalIndent(result.Replay, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode replay record")
		}
		if err := os.WriteFile(req.ReplayPath, data, 0o644); err != nil {
			return errors.WithCode(errors.CodeIOError, err, "failed to write replay record")
		}
	}
	if req.ReportPath != "" {
		in := report.Input{
			RunID:    record.ID.String(),
			Dataset:  filepath.Base(req.InputPath),
			Target:   req.Config.Target,
			Ranking:  string(req.Config.Ranking),
			Budget:   req.Config.Budget,
			Duration: record.Duration,
			Result:   result,
		}
		page := report.HTML(in)
		if strings.EqualFold(filepath.Ext(req.ReportPath), ".md") {
			page = report.Markdown(in)
		}
		if err := os.WriteFile(req.ReportPath, page, 0o644); err != nil {
			return errors.WithCode(errors.CodeIOError, err, "failed to write report")
		}
	}
	return nil
}

// ApplyReplay recomputes the columns of a saved replay record on another
// dataset without searching again
func (s *FeatureSearchService) ApplyReplay(ctx context.Context, inputPath, replayPath, outputPath string) (*dataset.Table, error) {
	table, err := s.reader.Read(ctx, inputPath)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIOError, err, "failed to read dataset")
	}
	data, err := os.ReadFile(replayPath)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIOError, err, "failed to read replay record")
	}
	var record search.ReplayRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "malformed replay record")
	}
	out, err := record.Apply(table)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "failed to replay columns")
	}
	if outputPath != "" {
		if err := s.writer.Write(ctx, outputPath, out); err != nil {
			return nil, errors.WithCode(errors.CodeIOError, err, "failed to write dataset")
		}
	}
	s.log.Info("replayed %d columns onto %s", len(record), inputPath)
	return out, nil
}

// GetRun loads a persisted run
func (s *FeatureSearchService) GetRun(ctx context.Context, id core.RunID) (*run.SearchRun, error) {
	if s.runs == nil {
		return nil, errors.ConfigInvalid("run persistence is disabled: DATABASE_URL is not set")
	}
	r, err := s.runs.Get(ctx, id)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.WithCode(errors.CodeNotFound, err, "search run not found")
		}
		return nil, errors.WithCode(errors.CodeDatabaseError, err, "failed to load search run")
	}
	return r, nil
}

// ListRuns lists the most recent persisted runs
func (s *FeatureSearchService) ListRuns(ctx context.Context, limit int) ([]run.Summary, error) {
	if s.runs == nil {
		return nil, errors.ConfigInvalid("run persistence is disabled: DATABASE_URL is not set")
	}
	list, err := s.runs.List(ctx, limit)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err, "failed to list search runs")
	}
	return list, nil
}

// NewRunRecord converts a search result into its persisted form
func NewRunRecord(id core.RunID, datasetName string, settings run.Settings, fingerprint string, result *search.Result, started time.Time) (*run.SearchRun, error) {
	replay, err := json.Marshal(result.Replay)
	if err != nil {
		return nil, fmt.Errorf("failed to encode replay record: %w", err)
	}
	nodes := make([]run.NodeRecord, 0, result.Graph.Len())
	for _, n := range result.Graph.Nodes() {
		nodes = append(nodes, run.NodeRecord{
			ID:          n.ID,
			Parent:      n.Parent,
			Level:       n.Level,
			Reward:      n.Reward,
			Cumulative:  n.Cumulative,
			Improvement: n.Improvement,
			Applied:     append([]string{}, n.Applied...),
			Columns:     n.Frame.Names(),
		})
	}
	return &run.SearchRun{
		ID:          id,
		Dataset:     filepath.Base(datasetName),
		Settings:    settings,
		Fingerprint: fingerprint,
		Task:        result.Task,
		Termination: string(result.Termination),
		RootReward:  result.Root.Reward,
		BestNode:    result.Best.ID,
		BestReward:  result.Best.Reward,
		NewColumns:  append([]string{}, result.NewColumns...),
		Replay:      replay,
		Nodes:       nodes,
		StartedAt:   started,
		Duration:    time.Since(started),
	}, nil
}

// resolveTypes returns the given types or infers them from the cells
func resolveTypes(table *dataset.Table, types []dataset.FeatureType) ([]dataset.FeatureType, error) {
	if len(types) == 0 {
		return dataset.InferTypes(table), nil
	}
	if len(types) != len(table.Columns) {
		return nil, fmt.Errorf("%w: %d types for %d columns", core.ErrInvalidFeatureTypes, len(types), len(table.Columns))
	}
	return types, nil
}
