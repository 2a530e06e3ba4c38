package search

import (
	"fmt"
	"math"
	"time"

	"featuregraph/domain/core"

	"github.com/montanaflynn/stats"
)

// Category groups transformations by what they need from the dataset
type Category string

const (
	Numeric Category = "numeric"
	Grouped Category = "grouped"
	Time    Category = "time"
)

// Categories lists the categories in seeding order
var Categories = []Category{Numeric, Grouped, Time}

// Catalog maps each category to its transformation names
var Catalog = map[Category][]string{
	Numeric: {"sin", "cos", "tan", "square"},
	Grouped: {"mean", "median", "std", "sum"},
	Time:    {"second", "minute", "hour", "day", "month", "year"},
}

// ColumnSeparator joins transformation, group and source column names
const ColumnSeparator = "---"

// poleEps is how close cos(x) may get to zero before tan(x) is rejected
const poleEps = 1e-12

// CategoryOf returns the category of a transformation name
func CategoryOf(name string) (Category, error) {
	for _, c := range Categories {
		for _, t := range Catalog[c] {
			if t == name {
				return c, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", core.ErrUnknownTransformation, name)
}

// unary applies an element-wise numeric transformation
func unary(name string, x float64) (float64, error) {
	var v float64
	switch name {
	case "sin":
		v = math.Sin(x)
	case "cos":
		v = math.Cos(x)
	case "tan":
		if math.Abs(math.Cos(x)) < poleEps {
			return 0, fmt.Errorf("%w: tan(%g) is at a pole", core.ErrNonFinite, x)
		}
		v = math.Tan(x)
	case "square":
		v = x * x
	default:
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownTransformation, name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s(%g)", core.ErrNonFinite, name, x)
	}
	return v, nil
}

// unaryColumn applies a numeric transformation to every value
func unaryColumn(name string, values []float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, x := range values {
		v, err := unary(name, x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// aggregate computes a grouped transformation over the values of one group
func aggregate(name string, values []float64) (float64, error) {
	data := stats.Float64Data(values)
	var (
		v   float64
		err error
	)
	switch name {
	case "mean":
		v, err = data.Mean()
	case "median":
		v, err = data.Median()
	case "std":
		v, err = stats.StandardDeviationSample(data)
	case "sum":
		v, err = data.Sum()
	default:
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownTransformation, name)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s over %d values", core.ErrNonFinite, name, len(values))
	}
	return v, nil
}

// timeComponent extracts a date/time field
func timeComponent(name string, t time.Time) (float64, error) {
	switch name {
	case "second":
		return float64(t.Second()), nil
	case "minute":
		return float64(t.Minute()), nil
	case "hour":
		return float64(t.Hour()), nil
	case "day":
		return float64(t.Day()), nil
	case "month":
		return float64(t.Month()), nil
	case "year":
		return float64(t.Year()), nil
	}
	return 0, fmt.Errorf("%w: %s", core.ErrUnknownTransformation, name)
}

// NumericColumnName is the column produced by a numeric or time transformation
func NumericColumnName(transformation, column string) string {
	return transformation + ColumnSeparator + column
}

// GroupedColumnName is the column produced by a grouped transformation
func GroupedColumnName(group, transformation, column string) string {
	return group + ColumnSeparator + transformation + ColumnSeparator + column
}
