package learn

import (
	"context"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Fold holds the sample indexes of one train/test split
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits n samples into Splits consecutive folds, optionally shuffled
// with a fixed seed. The first n%Splits folds get one extra sample.
type KFold struct {
	Splits  int
	Shuffle bool
	Seed    int64
}

// Split returns the folds for n samples
func (k KFold) Split(n int) ([]Fold, error) {
	if k.Splits < 2 {
		return nil, fmt.Errorf("k-fold needs at least 2 splits, got %d", k.Splits)
	}
	if n < k.Splits {
		return nil, fmt.Errorf("cannot split %d samples into %d folds", n, k.Splits)
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if k.Shuffle {
		rng := rand.New(rand.NewSource(k.Seed))
		rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	}

	folds := make([]Fold, 0, k.Splits)
	start := 0
	for f := 0; f < k.Splits; f++ {
		size := n / k.Splits
		if f < n%k.Splits {
			size++
		}
		test := append([]int(nil), perm[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, perm[:start]...)
		train = append(train, perm[start+size:]...)
		folds = append(folds, Fold{Train: train, Test: test})
		start += size
	}
	return folds, nil
}

// Scorer compares true and predicted targets; larger is better
type Scorer func(yTrue, yPred []float64) float64

// CrossValScore fits a fresh estimator per fold and returns the fold scores
func CrossValScore(ctx context.Context, newEstimator func() Estimator, X [][]float64, y []float64, folds []Fold, score Scorer) ([]float64, error) {
	scores := make([]float64, 0, len(folds))
	for i, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		Xtr, ytr := subset(X, y, fold.Train)
		Xte, yte := subset(X, y, fold.Test)

		est := newEstimator()
		if err := est.Fit(ctx, Xtr, ytr); err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		scores = append(scores, score(yte, est.Predict(Xte)))
	}
	return scores, nil
}

// MeanScore is the arithmetic mean of fold scores
func MeanScore(scores []float64) float64 {
	return stat.Mean(scores, nil)
}

func subset(X [][]float64, y []float64, inx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(inx))
	ys := make([]float64, len(inx))
	for i, j := range inx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}
