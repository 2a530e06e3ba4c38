// Package catgroup reduces the cardinality of categorical columns by merging
// rare categories or clustering categories with a similar target profile.
package catgroup

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/internal/learn"
)

// Method selects how categories are merged
type Method string

const (
	Percent Method = "percent"
	TopN    Method = "top_n"
	KMeans  Method = "kmeans"
)

// Other is the label given to merged rare categories
const Other = "other"

// ParseMethod validates a grouping method name
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Percent, TopN, KMeans:
		return m, nil
	}
	return "", core.NewValidationError("method", fmt.Sprintf("unknown grouping method %q", s))
}

// Correspondence maps column -> original category -> grouped category
type Correspondence map[string]map[string]string

// Grouper merges the categories of Columns.
//
// Percent sends categories holding less than Threshold of the rows to Other.
// TopN keeps the N most frequent categories and sends the rest to Other.
// KMeans clusters categories on their target profile into N groups named
// grupo_<k>; it needs Target and Task.
type Grouper struct {
	Method    Method
	Threshold float64
	N         int
	Columns   []string
	Target    string
	Task      learn.Task
	Seed      int64
}

// Validate checks the settings
func (g Grouper) Validate() error {
	if _, err := ParseMethod(string(g.Method)); err != nil {
		return err
	}
	if len(g.Columns) == 0 {
		return core.NewValidationError("columns", "at least one column is required")
	}
	switch g.Method {
	case Percent:
		if g.Threshold <= 0 || g.Threshold >= 1 {
			return core.NewValidationError("threshold", "must be between 0 and 1")
		}
	case TopN, KMeans:
		if g.N <= 0 {
			return core.NewValidationError("n", "must be positive")
		}
	}
	if g.Method == KMeans && g.Target == "" {
		return core.NewValidationError("target", "kmeans grouping needs a target column")
	}
	return nil
}

// FitTransform returns a copy of table with the configured columns regrouped
// and the mapping applied to each of them. Missing cells are left as they are.
func (g Grouper) FitTransform(table *dataset.Table) (*dataset.Table, Correspondence, error) {
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	var profile *targetProfile
	if g.Method == KMeans {
		var err error
		if profile, err = newTargetProfile(table, g.Target, g.Task); err != nil {
			return nil, nil, err
		}
	}

	out := table.Clone()
	correspondence := make(Correspondence, len(g.Columns))
	for _, col := range g.Columns {
		cells, err := out.Column(col)
		if err != nil {
			return nil, nil, err
		}

		var mapping map[string]string
		switch g.Method {
		case Percent:
			mapping = groupPercent(cells, g.Threshold)
		case TopN:
			mapping = groupTopN(cells, g.N)
		case KMeans:
			mapping = groupKMeans(cells, profile, g.N, g.Seed)
		}

		for i, c := range cells {
			if grouped, ok := mapping[c]; ok {
				cells[i] = grouped
			}
		}
		if err := out.SetColumn(col, cells); err != nil {
			return nil, nil, err
		}
		correspondence[col] = mapping
	}
	return out, correspondence, nil
}

type categoryCount struct {
	value string
	count int
}

// countCategories returns the present categories by frequency, most
// frequent first, ties in lexical order.
func countCategories(cells []string) []categoryCount {
	counts := make(map[string]int)
	for _, c := range cells {
		if !dataset.IsMissing(c) {
			counts[c]++
		}
	}
	out := make([]categoryCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, categoryCount{v, n})
	}
	slices.SortFunc(out, func(a, b categoryCount) int {
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		return strings.Compare(a.value, b.value)
	})
	return out
}

func groupPercent(cells []string, threshold float64) map[string]string {
	mapping := make(map[string]string)
	for _, cc := range countCategories(cells) {
		if float64(cc.count)/float64(len(cells)) < threshold {
			mapping[cc.value] = Other
		} else {
			mapping[cc.value] = cc.value
		}
	}
	return mapping
}

func groupTopN(cells []string, n int) map[string]string {
	mapping := make(map[string]string)
	for i, cc := range countCategories(cells) {
		if i < n {
			mapping[cc.value] = cc.value
		} else {
			mapping[cc.value] = Other
		}
	}
	return mapping
}
