package catgroup

import (
	"testing"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/internal/learn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cityTable() *dataset.Table {
	cities := []string{"a", "a", "a", "a", "a", "b", "b", "b", "c", "d", ""}
	targets := []string{"1", "1.2", "0.8", "1", "1", "1.1", "1.1", "1.1", "10", "10.2", "3"}
	rows := make([][]string, len(cities))
	for i := range cities {
		rows[i] = []string{cities[i], targets[i]}
	}
	return dataset.NewTable([]string{"city", "y"}, rows)
}

func TestGroupPercent(t *testing.T) {
	table := cityTable()
	out, corr, err := Grouper{Method: Percent, Threshold: 0.15, Columns: []string{"city"}}.FitTransform(table)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "a", "b": "b", "c": Other, "d": Other}, corr["city"])
	cities, _ := out.Column("city")
	assert.Equal(t, []string{"a", "a", "a", "a", "a", "b", "b", "b", Other, Other, ""}, cities)

	original, _ := table.Column("city")
	assert.Equal(t, "c", original[8])
}

func TestGroupTopN(t *testing.T) {
	_, corr, err := Grouper{Method: TopN, N: 1, Columns: []string{"city"}}.FitTransform(cityTable())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "a", "b": Other, "c": Other, "d": Other}, corr["city"])

	_, corr, err = Grouper{Method: TopN, N: 3, Columns: []string{"city"}}.FitTransform(cityTable())
	require.NoError(t, err)
	// c and d tie on frequency; lexical order breaks the tie
	assert.Equal(t, map[string]string{"a": "a", "b": "b", "c": "c", "d": Other}, corr["city"])
}

func TestGroupKMeansRegression(t *testing.T) {
	g := Grouper{Method: KMeans, N: 2, Columns: []string{"city"}, Target: "y", Task: learn.Regression}
	out, corr, err := g.FitTransform(cityTable())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "grupo_0", "b": "grupo_0", "c": "grupo_1", "d": "grupo_1"}, corr["city"])
	cities, _ := out.Column("city")
	assert.Equal(t, "grupo_1", cities[9])
	assert.Equal(t, "", cities[10])
}

func TestGroupKMeansClassification(t *testing.T) {
	rows := [][]string{
		{"red", "yes"}, {"red", "yes"}, {"pink", "yes"}, {"pink", "yes"},
		{"blue", "no"}, {"blue", "no"}, {"navy", "no"}, {"navy", "no"},
	}
	table := dataset.NewTable([]string{"color", "label"}, rows)
	for _, seed := range []int64{0, 1, 2, 3} {
		g := Grouper{Method: KMeans, N: 2, Columns: []string{"color"}, Target: "label", Task: learn.Classification, Seed: seed}
		_, corr, err := g.FitTransform(table)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"blue": "grupo_0", "navy": "grupo_0", "pink": "grupo_1", "red": "grupo_1",
		}, corr["color"], "seed %d", seed)
	}
}

func TestGroupKMeansClampsClusterCount(t *testing.T) {
	g := Grouper{Method: KMeans, N: 10, Columns: []string{"city"}, Target: "y", Task: learn.Regression}
	_, corr, err := g.FitTransform(cityTable())
	require.NoError(t, err)

	distinct := map[string]bool{}
	for _, v := range corr["city"] {
		distinct[v] = true
	}
	assert.Len(t, distinct, 4)
}

func TestGrouperValidate(t *testing.T) {
	tests := []struct {
		name string
		g    Grouper
	}{
		{"unknown method", Grouper{Method: "median", Columns: []string{"city"}}},
		{"no columns", Grouper{Method: TopN, N: 2}},
		{"threshold out of range", Grouper{Method: Percent, Threshold: 1.5, Columns: []string{"city"}}},
		{"non-positive n", Grouper{Method: TopN, Columns: []string{"city"}}},
		{"kmeans without target", Grouper{Method: KMeans, N: 2, Columns: []string{"city"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.g.FitTransform(cityTable())
			assert.Error(t, err)
		})
	}
}

func TestGrouperMissingColumn(t *testing.T) {
	_, _, err := Grouper{Method: TopN, N: 1, Columns: []string{"nope"}}.FitTransform(cityTable())
	assert.True(t, core.IsNotFoundError(err))

	_, _, err = Grouper{Method: KMeans, N: 1, Columns: []string{"city"}, Target: "nope"}.FitTransform(cityTable())
	assert.True(t, core.IsNotFoundError(err))
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" TOP_N ")
	require.NoError(t, err)
	assert.Equal(t, TopN, m)
}
