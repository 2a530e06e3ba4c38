package report

import (
	"context"
	"strings"
	"testing"

	"featuregraph/domain/dataset"
	"featuregraph/internal/learn"
	"featuregraph/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type columnCount struct{}

func (columnCount) Score(_ context.Context, X [][]float64) (float64, error) {
	return float64(len(X[0])), nil
}

func runSearch(t *testing.T) *search.Result {
	t.Helper()
	rows := make([][]string, 12)
	for i := range rows {
		rows[i] = []string{[]string{"a", "b"}[i%2], dataset.FormatNumber(float64(i) + 0.5), []string{"no", "yes"}[i%3%2]}
	}
	table := dataset.NewTable([]string{"g", "x", "y"}, rows)
	types := []dataset.FeatureType{dataset.Categorical, dataset.Numerical, dataset.Categorical}

	cfg := search.DefaultConfig()
	cfg.Target, cfg.GroupColumn, cfg.Budget = "y", "g", 10
	s, err := search.New(table, types, cfg, search.WithEvaluatorFactory(
		func(learn.Task, []float64, int, int64) search.Evaluator { return columnCount{} }))
	require.NoError(t, err)
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestMarkdown(t *testing.T) {
	res := runSearch(t)
	md := string(Markdown(Input{RunID: "r1", Dataset: "shop|data.csv", Target: "y", Ranking: "reward", Budget: 10, Result: res}))

	assert.Contains(t, md, "# Feature search report")
	assert.Contains(t, md, "| Run | `r1` |")
	assert.Contains(t, md, `shop\|data.csv`)
	assert.Contains(t, md, "| Nodes | 10 of budget 10 |")
	assert.Contains(t, md, "| Stopped | budget |")
	assert.Contains(t, md, "root → "+strings.Join(res.Best.Applied, " → "))
	// header plus one line per node
	assert.Equal(t, res.Graph.Len()+1, strings.Count(md[strings.Index(md, "## Graph"):], "\n| "))
	for _, c := range res.NewColumns {
		assert.Contains(t, md, "`"+c+"`")
	}
}

func TestHTML(t *testing.T) {
	page := string(HTML(Input{Dataset: "data.csv", Target: "y", Ranking: "reward", Budget: 10, Result: runSearch(t)}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(page), "<!DOCTYPE html"))
	assert.Contains(t, page, "<title>Feature search report</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "<h2")
}
