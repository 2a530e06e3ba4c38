package learn

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// F1Macro is the unweighted mean of per-class F1 over every label present in
// either yTrue or yPred. Undefined precision or recall counts as 0.
func F1Macro(yTrue, yPred []float64) float64 {
	labelSet := make(map[float64]bool)
	for i := range yTrue {
		labelSet[yTrue[i]] = true
		labelSet[yPred[i]] = true
	}
	if len(labelSet) == 0 {
		return 0
	}
	labels := make([]float64, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Float64s(labels)

	f1s := make([]float64, len(labels))
	for k, l := range labels {
		var tp, fp, fn float64
		for i := range yTrue {
			switch {
			case yPred[i] == l && yTrue[i] == l:
				tp++
			case yPred[i] == l:
				fp++
			case yTrue[i] == l:
				fn++
			}
		}
		if tp == 0 {
			continue
		}
		precision := tp / (tp + fp)
		recall := tp / (tp + fn)
		f1s[k] = 2 * precision * recall / (precision + recall)
	}
	return stat.Mean(f1s, nil)
}

// NegMeanAbsoluteError is -mean(|yTrue-yPred|) so that larger is better
func NegMeanAbsoluteError(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	diff := make([]float64, len(yTrue))
	floats.SubTo(diff, yTrue, yPred)
	for i, d := range diff {
		diff[i] = math.Abs(d)
	}
	return -stat.Mean(diff, nil)
}

// FillForwardBackward replaces NaN values with the previous valid value,
// then leading NaNs with the first valid value. A column without any valid
// value becomes zeros. The input is returned unchanged when it has no NaN.
func FillForwardBackward(values []float64) []float64 {
	if !floats.HasNaN(values) {
		return values
	}
	out := make([]float64, len(values))
	copy(out, values)

	first := -1
	last := math.NaN()
	for i, v := range out {
		if math.IsNaN(v) {
			out[i] = last
			continue
		}
		if first < 0 {
			first = i
		}
		last = v
	}
	if first < 0 {
		for i := range out {
			out[i] = 0
		}
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	return out
}
