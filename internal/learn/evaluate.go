package learn

import (
	"context"
	"fmt"
)

// CrossValidator scores feature matrices against a fixed target with a
// random forest under shuffled k-fold cross-validation.
type CrossValidator struct {
	Task    Task
	Target  []float64
	Classes int
	Folds   int
	Seed    int64
	Options []ForestOption
}

// NewCrossValidator builds a validator; Classes is derived from the target
// for classification.
func NewCrossValidator(task Task, target []float64, folds int, seed int64, opts ...ForestOption) *CrossValidator {
	classes := 0
	if task == Classification {
		for _, v := range target {
			if c := int(v) + 1; c > classes {
				classes = c
			}
		}
	}
	return &CrossValidator{
		Task:    task,
		Target:  target,
		Classes: classes,
		Folds:   folds,
		Seed:    seed,
		Options: opts,
	}
}

// Scorer returns the fold metric matching the task
func (cv *CrossValidator) Scorer() Scorer {
	if cv.Task == Classification {
		return F1Macro
	}
	return NegMeanAbsoluteError
}

// Score returns the mean fold score of X. Fewer samples than folds reduces
// the fold count to the sample count.
func (cv *CrossValidator) Score(ctx context.Context, X [][]float64) (float64, error) {
	if len(X) != len(cv.Target) {
		return 0, fmt.Errorf("cross-validation: %d rows for %d targets", len(X), len(cv.Target))
	}
	splits := min(cv.Folds, len(X))
	folds, err := KFold{Splits: splits, Shuffle: true, Seed: cv.Seed}.Split(len(X))
	if err != nil {
		return 0, err
	}

	opts := append([]ForestOption{Seed(cv.Seed), Classes(cv.Classes)}, cv.Options...)
	newForest := func() Estimator { return NewForest(cv.Task, opts...) }

	scores, err := CrossValScore(ctx, newForest, X, cv.Target, folds, cv.Scorer())
	if err != nil {
		return 0, err
	}
	return MeanScore(scores), nil
}
