package learn

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Estimator is a model that can be fitted and queried
type Estimator interface {
	Fit(ctx context.Context, X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Forest is a bagged ensemble of CART trees. Each tree draws a bootstrap
// sample and its own feature subsets from a seed derived from the forest
// seed and the tree index, so the fitted forest does not depend on how the
// trees were scheduled across workers.
type Forest struct {
	Task        Task
	Classes     int
	NTrees      int
	MaxFeatures int // 0 selects sqrt(p) for classification and p for regression
	MinSplit    int
	MinLeaf     int
	MaxDepth    int
	Seed        int64
	Workers     int
	trees       []*Tree
}

// ForestOption configures a Forest
type ForestOption func(*Forest)

// Trees sets the number of trees in the ensemble
func Trees(n int) ForestOption {
	return func(f *Forest) { f.NTrees = n }
}

// MaxFeatures limits the features considered per split
func MaxFeatures(n int) ForestOption {
	return func(f *Forest) { f.MaxFeatures = n }
}

// MaxDepth limits tree depth; -1 grows full trees
func MaxDepth(n int) ForestOption {
	return func(f *Forest) { f.MaxDepth = n }
}

// MinLeaf sets the minimum number of samples per leaf
func MinLeaf(n int) ForestOption {
	return func(f *Forest) { f.MinLeaf = n }
}

// Seed fixes the random state
func Seed(s int64) ForestOption {
	return func(f *Forest) { f.Seed = s }
}

// Workers bounds how many trees are grown concurrently
func Workers(n int) ForestOption {
	return func(f *Forest) { f.Workers = n }
}

// Classes sets the number of classes for classification forests
func Classes(n int) ForestOption {
	return func(f *Forest) { f.Classes = n }
}

// NewForest returns a forest with defaults mirroring the usual random forest
// settings: 100 fully grown trees, 2 samples to split, 1 per leaf.
func NewForest(task Task, opts ...ForestOption) *Forest {
	f := &Forest{
		Task:     task,
		NTrees:   100,
		MinSplit: 2,
		MinLeaf:  1,
		MaxDepth: -1,
		Workers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fit grows every tree of the forest
func (f *Forest) Fit(ctx context.Context, X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("forest fit: %d samples for %d targets", len(X), len(y))
	}
	if len(X[0]) == 0 {
		return fmt.Errorf("forest fit: no features")
	}
	if f.Task == Classification {
		for _, v := range y {
			if c := int(v) + 1; c > f.Classes {
				f.Classes = c
			}
		}
	}

	maxFeatures := f.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = len(X[0])
		if f.Task == Classification {
			maxFeatures = max(1, int(math.Sqrt(float64(len(X[0])))))
		}
	}

	f.trees = make([]*Tree, f.NTrees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(f.Workers, 1))
	for i := 0; i < f.NTrees; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(f.Seed*1000003 + int64(i)))
			inx := make([]int, len(X))
			for j := range inx {
				inx[j] = rng.Intn(len(X))
			}
			t := &Tree{
				Task:        f.Task,
				Classes:     f.Classes,
				MinSplit:    f.MinSplit,
				MinLeaf:     f.MinLeaf,
				MaxDepth:    f.MaxDepth,
				MaxFeatures: maxFeatures,
				rng:         rng,
			}
			t.fitInx(X, y, inx)
			f.trees[i] = t
			return nil
		})
	}
	return g.Wait()
}

// Predict averages tree outputs: class proportions for classification
// (returning the most probable class code) and values for regression.
func (f *Forest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		if f.Task == Classification {
			proba := make([]float64, f.Classes)
			for _, t := range f.trees {
				for c, p := range t.predictDist(x) {
					proba[c] += p
				}
			}
			out[i] = float64(argmax(proba))
			continue
		}
		var s float64
		for _, t := range f.trees {
			s += t.predictValue(x)
		}
		out[i] = s / float64(len(f.trees))
	}
	return out
}
