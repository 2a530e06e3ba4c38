// Package preselect removes redundant features before a search: of every
// pair of numeric columns correlated above a cutoff, the member that is more
// correlated with everything else is dropped.
package preselect

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Correlation is a correlation-based feature selector. Categorical lists the
// column indexes excluded from the analysis.
type Correlation struct {
	Cutoff      float64
	Categorical []int

	drop   []int
	fitted bool
}

// NewCorrelation returns a selector dropping pairs above cutoff
func NewCorrelation(cutoff float64, categorical []int) *Correlation {
	return &Correlation{Cutoff: cutoff, Categorical: categorical}
}

// Fit learns which columns of X to drop. X is row-major with equally long rows.
func (c *Correlation) Fit(X [][]float64) error {
	c.drop = nil
	c.fitted = true

	width := 0
	if len(X) > 0 {
		width = len(X[0])
	}
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), width)
		}
	}

	numeric := c.numericColumns(width)
	if len(X) <= 1 || len(numeric) <= 1 {
		return nil
	}

	data := mat.NewDense(len(X), len(numeric), nil)
	for i, row := range X {
		for j, col := range numeric {
			data.Set(i, j, row[col])
		}
	}
	corr := mat.NewSymDense(len(numeric), nil)
	stat.CorrelationMatrix(corr, data, nil)

	p := len(numeric)
	abs := make([][]float64, p)
	meanCorr := make([]float64, p)
	for i := range abs {
		abs[i] = make([]float64, p)
		for j := range abs[i] {
			v := math.Abs(corr.At(i, j))
			// constant columns have no defined correlation
			if math.IsNaN(v) {
				v = 0
			}
			abs[i][j] = v
		}
		meanCorr[i] = stat.Mean(abs[i], nil)
	}

	for i := 0; i < p; i++ {
		for j := i + 1; j < p; j++ {
			if abs[i][j] <= c.Cutoff {
				continue
			}
			victim := i
			if meanCorr[j] > meanCorr[i] {
				victim = j
			}
			c.drop = append(c.drop, numeric[victim])
		}
	}
	return nil
}

func (c *Correlation) numericColumns(width int) []int {
	var cols []int
	for j := 0; j < width; j++ {
		if !slices.Contains(c.Categorical, j) {
			cols = append(cols, j)
		}
	}
	return cols
}

// Support returns the sorted, unique indexes of the dropped input columns
func (c *Correlation) Support() []int {
	s := slices.Clone(c.drop)
	slices.Sort(s)
	return slices.Compact(s)
}

// Transform removes the dropped columns from X
func (c *Correlation) Transform(X [][]float64) ([][]float64, error) {
	if !c.fitted {
		return nil, fmt.Errorf("correlation selector is not fitted")
	}
	drop := c.Support()
	if len(drop) == 0 {
		return X, nil
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		kept := make([]float64, 0, len(row)-len(drop))
		for j, v := range row {
			if _, found := slices.BinarySearch(drop, j); !found {
				kept = append(kept, v)
			}
		}
		out[i] = kept
	}
	return out, nil
}

// FitTransform fits the selector and returns the reduced matrix
func (c *Correlation) FitTransform(X [][]float64) ([][]float64, error) {
	if err := c.Fit(X); err != nil {
		return nil, err
	}
	return c.Transform(X)
}
