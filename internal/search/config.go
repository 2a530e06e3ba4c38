package search

import (
	"context"
	"fmt"
	"strings"

	"featuregraph/domain/core"
	"featuregraph/internal/learn"
)

// RankingMode selects which node value drives the greedy selection
type RankingMode string

const (
	RankByReward      RankingMode = "reward"
	RankByCumulative  RankingMode = "cumulative"
	RankByImprovement RankingMode = "improvement"
)

// ParseRankingMode validates a ranking mode name
func ParseRankingMode(s string) (RankingMode, error) {
	switch m := RankingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RankByReward, RankByCumulative, RankByImprovement:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownRankingMode, s)
}

// Config describes one search run
type Config struct {
	Target      string
	GroupColumn string // optional
	DateColumn  string // optional
	// Budget is the maximum number of nodes created by transformations. The
	// untransformed root is not counted, so a finished graph holds at most
	// Budget+1 nodes.
	Budget  int
	Ranking RankingMode
	Folds   int
	Seed    int64
}

// DefaultConfig returns the settings used when the caller has no preference
func DefaultConfig() Config {
	return Config{
		Budget:  50,
		Ranking: RankByReward,
		Folds:   10,
		Seed:    0,
	}
}

// Validate checks the run settings
func (c Config) Validate() error {
	if c.Target == "" {
		return core.NewValidationError("target", "is required")
	}
	if c.Budget <= 0 {
		return fmt.Errorf("%w: %d", core.ErrInvalidBudget, c.Budget)
	}
	if _, err := ParseRankingMode(string(c.Ranking)); err != nil {
		return err
	}
	if c.Folds < 2 {
		return core.NewValidationError("folds", fmt.Sprintf("need at least 2, got %d", c.Folds))
	}
	return nil
}

// Evaluator scores a feature matrix against the target held by the evaluator
type Evaluator interface {
	Score(ctx context.Context, X [][]float64) (float64, error)
}

// EvaluatorFactory builds the evaluator once the target has been prepared
type EvaluatorFactory func(task learn.Task, target []float64, folds int, seed int64) Evaluator

// ForestEvaluators returns the default factory: random forest cross-validation
func ForestEvaluators(opts ...learn.ForestOption) EvaluatorFactory {
	return func(task learn.Task, target []float64, folds int, seed int64) Evaluator {
		return learn.NewCrossValidator(task, target, folds, seed, opts...)
	}
}
