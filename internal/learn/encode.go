package learn

import (
	"fmt"
	"sort"
)

// OrdinalEncoder maps category strings to 0..k-1 in sorted order
type OrdinalEncoder struct {
	Categories []string
	index      map[string]int
}

// FitOrdinalEncoder learns the sorted distinct categories of values
func FitOrdinalEncoder(values []string) *OrdinalEncoder {
	seen := make(map[string]bool)
	var cats []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			cats = append(cats, v)
		}
	}
	sort.Strings(cats)

	index := make(map[string]int, len(cats))
	for i, c := range cats {
		index[c] = i
	}
	return &OrdinalEncoder{Categories: cats, index: index}
}

// Transform encodes values; an unseen category is an error
func (e *OrdinalEncoder) Transform(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		code, ok := e.index[v]
		if !ok {
			return nil, fmt.Errorf("unknown category %q", v)
		}
		out[i] = float64(code)
	}
	return out, nil
}
