// Package search implements the transformation graph search: starting from
// a preprocessed dataset it scores candidate feature sets with a
// cross-validated model and greedily expands the most promising
// (node, transformation) pair until the node budget is spent.
//
// The strategy follows Khurana et al., "Feature Engineering for Predictive
// Modeling using Reinforcement Learning" (AAAI 2018).
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/internal"
	"featuregraph/internal/learn"
)

// Termination records why the expansion loop stopped
type Termination string

const (
	TerminationBudget    Termination = "budget"
	TerminationExhausted Termination = "exhausted"
	TerminationFailed    Termination = "failed"
	TerminationCancelled Termination = "cancelled"
)

// Option customizes a Search
type Option func(*Search)

// WithEvaluatorFactory replaces the random forest evaluator
func WithEvaluatorFactory(f EvaluatorFactory) Option {
	return func(s *Search) { s.newEvaluator = f }
}

// WithLogger sets the logger
func WithLogger(l *internal.Logger) Option {
	return func(s *Search) { s.log = l.WithComponent("Search") }
}

// Search owns the graph and every piece of per-run state. It is not safe for
// concurrent use; one instance serves one run.
type Search struct {
	cfg          Config
	log          *internal.Logger
	newEvaluator EvaluatorFactory

	data  *dataset.Table
	types []dataset.FeatureType

	kept        []int // rows of data that survived missing-value removal
	task        learn.Task
	evaluator   Evaluator
	numeric     []string // numeric feature columns eligible for transformations
	dates       []time.Time
	groupLabels []float64

	graph       *Graph
	nodeValues  map[int]float64
	transValues map[string]float64
	transOrder  []string
}

// New validates the inputs and prepares a search. types must hold one
// entry per column of data.
func New(data *dataset.Table, types []dataset.FeatureType, cfg Config, opts ...Option) (*Search, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(types) != len(data.Columns) {
		return nil, fmt.Errorf("%w: %d types for %d columns", core.ErrInvalidFeatureTypes, len(types), len(data.Columns))
	}
	if data.ColumnIndex(cfg.Target) < 0 {
		return nil, core.NewColumnNotFoundError(cfg.Target)
	}
	if cfg.DateColumn != "" && data.ColumnIndex(cfg.DateColumn) < 0 {
		return nil, core.NewColumnNotFoundError(cfg.DateColumn)
	}

	s := &Search{
		cfg:          cfg,
		log:          internal.DefaultLogger.WithComponent("Search"),
		newEvaluator: ForestEvaluators(),
		data:         data,
		types:        append([]dataset.FeatureType(nil), types...),
		nodeValues:   make(map[int]float64),
		transValues:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Graph exposes the search graph (nil before Preprocess)
func (s *Search) Graph() *Graph { return s.graph }

// Task reports whether the target is modelled by classification or regression
func (s *Search) Task() learn.Task { return s.task }

// Preprocess drops incomplete rows, sets the target and date columns aside,
// encodes categorical features and scores the root node.
func (s *Search) Preprocess(ctx context.Context) error {
	if s.graph != nil {
		return fmt.Errorf("search already preprocessed")
	}

	targetIdx := s.data.ColumnIndex(s.cfg.Target)
	dateIdx := -1
	if s.cfg.DateColumn != "" {
		dateIdx = s.data.ColumnIndex(s.cfg.DateColumn)
	}

	s.kept = s.usableRows(dateIdx)
	if len(s.kept) == 0 {
		return fmt.Errorf("%w: no complete rows", core.ErrInsufficientData)
	}
	s.log.Info("%d of %d rows kept after missing-value removal", len(s.kept), s.data.Len())

	target, err := s.prepareTarget(targetIdx)
	if err != nil {
		return err
	}

	if dateIdx >= 0 {
		s.dates = make([]time.Time, len(s.kept))
		for k, r := range s.kept {
			s.dates[k], _ = dataset.ParseTime(s.data.Rows[r][dateIdx])
		}
	}

	root := dataset.NewFrame(len(s.kept))
	for j, name := range s.data.Columns {
		if j == targetIdx || j == dateIdx {
			continue
		}
		cells := s.keptCells(j)
		var values []float64
		if s.types[j] == dataset.Numerical {
			values = make([]float64, len(cells))
			for k, c := range cells {
				values[k], _ = dataset.ParseNumber(c)
			}
			s.numeric = append(s.numeric, name)
		} else {
			values, err = learn.FitOrdinalEncoder(cells).Transform(cells)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
		}
		if err := root.Set(name, values); err != nil {
			return err
		}
	}
	if root.Width() == 0 {
		return fmt.Errorf("%w: no feature columns besides the target", core.ErrInsufficientData)
	}

	if g, ok := root.Column(s.cfg.GroupColumn); ok && s.cfg.GroupColumn != "" {
		seen := make(map[float64]bool)
		for _, v := range g {
			if !seen[v] {
				seen[v] = true
				s.groupLabels = append(s.groupLabels, v)
			}
		}
	}

	s.evaluator = s.newEvaluator(s.task, target, s.cfg.Folds, s.cfg.Seed)

	reward, err := s.Energy(ctx, root)
	if err != nil {
		return fmt.Errorf("score root: %w", err)
	}
	s.graph = NewGraph()
	if _, err := s.graph.AddRoot(root, reward); err != nil {
		return err
	}
	s.log.Info("root reward %.6f (%s, %d features)", reward, s.task, root.Width())
	return nil
}

// usableRows keeps rows with no missing cell, parseable numeric cells and,
// when configured, a parseable date.
func (s *Search) usableRows(dateIdx int) []int {
	var kept []int
	for _, r := range s.data.CompleteRows() {
		row := s.data.Rows[r]
		ok := true
		for j, cell := range row {
			if s.types[j] == dataset.Numerical && j != dateIdx {
				if _, parsed := dataset.ParseNumber(cell); !parsed {
					ok = false
					break
				}
			}
		}
		if ok && dateIdx >= 0 {
			_, ok = dataset.ParseTime(row[dateIdx])
		}
		if ok {
			kept = append(kept, r)
		}
	}
	return kept
}

func (s *Search) keptCells(col int) []string {
	cells := make([]string, len(s.kept))
	for k, r := range s.kept {
		cells[k] = s.data.Rows[r][col]
	}
	return cells
}

func (s *Search) prepareTarget(idx int) ([]float64, error) {
	cells := s.keptCells(idx)
	if s.types[idx] == dataset.Categorical {
		s.task = learn.Classification
		return learn.FitOrdinalEncoder(cells).Transform(cells)
	}
	s.task = learn.Regression
	target := make([]float64, len(cells))
	for k, c := range cells {
		target[k], _ = dataset.ParseNumber(c)
	}
	return target, nil
}

// Energy scores a frame: residual gaps are filled forward then backward and
// the evaluator returns the mean cross-validated score.
func (s *Search) Energy(ctx context.Context, frame *dataset.Frame) (float64, error) {
	if frame.Width() == 0 {
		return 0, fmt.Errorf("%w: empty feature set", core.ErrInsufficientData)
	}
	filled := dataset.NewFrame(frame.Rows())
	for _, name := range frame.Names() {
		col, _ := frame.Column(name)
		if err := filled.Set(name, learn.FillForwardBackward(col)); err != nil {
			return 0, err
		}
	}
	return s.evaluator.Score(ctx, filled.Matrix())
}

// Discount weighs a node's reward by its depth: 1 - ln(level)/budget
func Discount(level, budget int) float64 {
	return 1 - math.Log(float64(level))/float64(budget)
}

// CumulativeReward combines a node's reward with its parent's cumulative reward
func CumulativeReward(parentCumulative, reward float64, level, budget int) float64 {
	return Discount(level, budget)*reward + parentCumulative
}

// AddToGraph scores frame and appends it as a child of parent
func (s *Search) AddToGraph(ctx context.Context, parent int, frame *dataset.Frame, transformation string) (*Node, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("search not preprocessed")
	}
	if s.graph.Derived() >= s.cfg.Budget {
		return nil, core.ErrBudgetReached
	}
	p, ok := s.graph.Node(parent)
	if !ok {
		return nil, fmt.Errorf("%w: %d", core.ErrNodeNotFound, parent)
	}

	reward, err := s.Energy(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("score %s from node %d: %w", transformation, parent, err)
	}
	cumulative := CumulativeReward(p.Cumulative, reward, p.Level+1, s.cfg.Budget)

	n, err := s.graph.AddChild(parent, frame, transformation, reward, cumulative)
	if err != nil {
		return nil, err
	}

	var ev float64
	switch s.cfg.Ranking {
	case RankByReward:
		ev = n.Reward
	case RankByCumulative:
		ev = n.Cumulative
	default:
		ev = n.Improvement
	}
	s.nodeValues[n.ID] = ev
	if prev, seen := s.transValues[transformation]; seen {
		s.transValues[transformation] = (prev + ev) / 2
	} else {
		s.transValues[transformation] = ev
		s.transOrder = append(s.transOrder, transformation)
	}

	s.log.Debug("node %d <- %d via %s: reward=%.6f cumulative=%.6f improvement=%.6f",
		n.ID, parent, transformation, n.Reward, n.Cumulative, n.Improvement)
	return n, nil
}

// applicable reports whether a category can run on the root dataset
func (s *Search) applicable(c Category) bool {
	switch c {
	case Grouped:
		return s.cfg.GroupColumn != "" && s.graph.Root().Frame.Has(s.cfg.GroupColumn)
	case Time:
		return s.cfg.DateColumn != ""
	}
	return true
}

// InitTransformations applies every applicable transformation to the root once
func (s *Search) InitTransformations(ctx context.Context) error {
	if s.graph == nil {
		return fmt.Errorf("search not preprocessed")
	}
	root := s.graph.Root()
	for _, c := range Categories {
		if !s.applicable(c) {
			s.log.Debug("skipping %s transformations", c)
			continue
		}
		for _, t := range Catalog[c] {
			if s.graph.Derived() >= s.cfg.Budget {
				return nil
			}
			frame, err := s.ApplyTransformation(root.Frame, t)
			if err != nil {
				return err
			}
			if _, err := s.AddToGraph(ctx, root.ID, frame, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// rankedNodes returns node ids by selection value, best first; ties favour
// the most recent node.
func (s *Search) rankedNodes() []int {
	ids := make([]int, 0, len(s.nodeValues))
	for id := range s.nodeValues {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		vi, vj := s.nodeValues[ids[i]], s.nodeValues[ids[j]]
		if vi != vj {
			return vi > vj
		}
		return ids[i] > ids[j]
	})
	return ids
}

// rankedTransformations returns transformation names by running value, best
// first; ties favour the most recently introduced transformation.
func (s *Search) rankedTransformations() []string {
	order := make(map[string]int, len(s.transOrder))
	for i, t := range s.transOrder {
		order[t] = i
	}
	names := append([]string(nil), s.transOrder...)
	sort.Slice(names, func(i, j int) bool {
		vi, vj := s.transValues[names[i]], s.transValues[names[j]]
		if vi != vj {
			return vi > vj
		}
		return order[names[i]] > order[names[j]]
	})
	return names
}

// selectNode picks the best ranked node whose depth does not exceed the
// number of transformations tried so far, falling back to the best ranked.
// Without derived nodes the root is returned.
func (s *Search) selectNode() int {
	ranked := s.rankedNodes()
	if len(ranked) == 0 {
		return 0
	}
	tried := len(s.transValues)
	for _, id := range ranked {
		if n, _ := s.graph.Node(id); n.Level <= tried {
			return id
		}
	}
	return ranked[0]
}

// SearchBestNode returns the next (node, transformation) pair to expand.
// ErrSearchExhausted means the selected node has already applied every
// transformation tried so far.
func (s *Search) SearchBestNode() (int, string, error) {
	if s.graph == nil {
		return 0, "", fmt.Errorf("search not preprocessed")
	}
	id := s.selectNode()
	n, _ := s.graph.Node(id)

	applied := make(map[string]bool, len(n.Applied))
	for _, t := range n.Applied {
		applied[t] = true
	}
	for _, t := range s.rankedTransformations() {
		if !applied[t] {
			return id, t, nil
		}
	}
	return id, "", fmt.Errorf("%w: node %d", core.ErrSearchExhausted, id)
}

// Run executes the whole search and formats its output. Errors are only
// returned for problems before the expansion loop (bad input, a root or
// seed node that cannot be scored); the loop itself ends best-effort and
// reports why through Result.Termination.
func (s *Search) Run(ctx context.Context) (*Result, error) {
	if s.graph == nil {
		if err := s.Preprocess(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.InitTransformations(ctx); err != nil {
		return nil, fmt.Errorf("seed transformations: %w", err)
	}
	s.log.Info("seeded %d nodes", s.graph.Derived())

	termination := s.expand(ctx)
	s.log.Info("search stopped (%s) with %d nodes", termination, s.graph.Len())

	return s.FormatOutput(termination)
}

func (s *Search) expand(ctx context.Context) (termination Termination) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("expansion panicked: %v", r)
			termination = TerminationFailed
		}
	}()

	for s.graph.Derived() < s.cfg.Budget {
		if ctx.Err() != nil {
			return TerminationCancelled
		}
		id, t, err := s.SearchBestNode()
		if err != nil {
			if core.IsExhausted(err) {
				s.log.Info("%v", err)
				return TerminationExhausted
			}
			s.log.Warn("selection failed: %v", err)
			return TerminationFailed
		}
		n, _ := s.graph.Node(id)
		frame, err := s.ApplyTransformation(n.Frame, t)
		if err == nil {
			_, err = s.AddToGraph(ctx, id, frame, t)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return TerminationCancelled
			}
			s.log.Warn("expansion of node %d with %s failed: %v", id, t, err)
			return TerminationFailed
		}
	}
	return TerminationBudget
}
