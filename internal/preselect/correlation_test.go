package preselect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() [][]float64 {
	// columns: a, b = 2a (redundant), cat, c (independent noise)
	return [][]float64{
		{1, 2, 0, 5},
		{2, 4, 1, 1},
		{3, 6, 0, 4},
		{4, 8, 1, 2},
		{5, 10, 0, 3},
	}
}

func TestCorrelationDropsRedundantColumn(t *testing.T) {
	c := NewCorrelation(0.9, []int{2})
	require.NoError(t, c.Fit(sample()))

	// a and b have identical mean correlation; the first member is dropped
	assert.Equal(t, []int{0}, c.Support())

	out, err := c.Transform(sample())
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 5}, out[0])
	assert.Len(t, out, 5)
}

func TestCorrelationUsesInputColumnIndexes(t *testing.T) {
	X := [][]float64{
		{0, 1, 7, 2},
		{1, 2, 1, 4},
		{0, 3, 5, 6},
		{1, 4, 2, 8},
	}
	c := NewCorrelation(0.95, []int{0})
	require.NoError(t, c.Fit(X))
	// the categorical column shifts numeric positions; the result must not
	assert.Equal(t, []int{1}, c.Support())
}

func TestCorrelationDropsMostConnectedMember(t *testing.T) {
	// b follows a closely and c loosely; b has the higher mean correlation
	X := [][]float64{
		{1, 1.1, 3},
		{2, 2.0, 1},
		{3, 3.2, 4},
		{4, 3.9, 2},
		{5, 5.1, 6},
		{6, 6.0, 5},
	}
	c := NewCorrelation(0.95, nil)
	require.NoError(t, c.Fit(X))
	assert.Equal(t, []int{1}, c.Support())
}

func TestCorrelationNothingToCompare(t *testing.T) {
	tests := []struct {
		name string
		X    [][]float64
		cat  []int
	}{
		{"single row", [][]float64{{1, 2, 3}}, nil},
		{"single numeric column", [][]float64{{1, 0}, {2, 1}, {3, 0}}, []int{1}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCorrelation(0.5, tt.cat)
			out, err := c.FitTransform(tt.X)
			require.NoError(t, err)
			assert.Empty(t, c.Support())
			assert.Equal(t, tt.X, out)
		})
	}
}

func TestCorrelationIgnoresConstantColumns(t *testing.T) {
	X := [][]float64{{1, 7}, {2, 7}, {3, 7}}
	c := NewCorrelation(0.1, nil)
	require.NoError(t, c.Fit(X))
	assert.Empty(t, c.Support())
}

func TestCorrelationRejectsRaggedInput(t *testing.T) {
	c := NewCorrelation(0.5, nil)
	assert.Error(t, c.Fit([][]float64{{1, 2}, {3}}))
}

func TestTransformRequiresFit(t *testing.T) {
	_, err := NewCorrelation(0.5, nil).Transform([][]float64{{1}})
	assert.Error(t, err)
}
