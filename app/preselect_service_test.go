package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"featuregraph/domain/dataset"
	"featuregraph/internal/catgroup"
	"featuregraph/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func correlatedTable() *dataset.Table {
	return dataset.NewTable(
		[]string{"a", "b", "kind", "c", "y"},
		[][]string{
			{"1", "2", "x", "5", "1"},
			{"2", "4", "y", "1", "2"},
			{"3", "6", "x", "4", "3"},
			{"4", "8", "y", "2", "4"},
			{"5", "10", "x", "3", "5"},
			{"6", "", "x", "3", "6"},
		},
	)
}

func TestPreselectServiceRun(t *testing.T) {
	ctx := context.Background()
	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "in.csv").Return(correlatedTable(), nil)
	writer := &MockDatasetWriter{}
	writer.On("Write", ctx, "out.csv", mock.Anything).Return(nil)

	svc := NewPreselectService(reader, writer)
	resp, err := svc.Run(ctx, PreselectRequest{InputPath: "in.csv", OutputPath: "out.csv", Cutoff: 0.9, Keep: []string{"y"}})
	require.NoError(t, err)

	// a and b are perfectly correlated; y is excluded even though it follows a
	assert.Equal(t, []string{"a"}, resp.Dropped)
	assert.Equal(t, []string{"b", "kind", "c", "y"}, resp.Table.Columns)
	assert.Equal(t, 6, resp.Table.Len())
	writer.AssertExpectations(t)
}

func TestPreselectServiceValidatesCutoff(t *testing.T) {
	svc := NewPreselectService(&MockDatasetReader{}, &MockDatasetWriter{})
	_, err := svc.Run(context.Background(), PreselectRequest{InputPath: "in.csv", Cutoff: 0})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestGroupingServiceRun(t *testing.T) {
	ctx := context.Background()
	table := dataset.NewTable([]string{"city", "y"}, [][]string{
		{"lisbon", "yes"}, {"lisbon", "yes"}, {"porto", "yes"}, {"porto", "yes"},
		{"faro", "no"}, {"faro", "no"}, {"braga", "no"}, {"braga", "no"},
	})
	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "in.csv").Return(table, nil)
	writer := &MockDatasetWriter{}
	writer.On("Write", ctx, "out.csv", mock.Anything).Return(nil)

	mappingPath := filepath.Join(t.TempDir(), "mapping.json")
	svc := NewGroupingService(reader, writer)
	resp, err := svc.Run(ctx, GroupingRequest{
		InputPath:   "in.csv",
		OutputPath:  "out.csv",
		MappingPath: mappingPath,
		Grouper:     catgroup.Grouper{Method: catgroup.KMeans, N: 2, Columns: []string{"city"}, Target: "y"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"braga": "grupo_0", "faro": "grupo_0", "lisbon": "grupo_1", "porto": "grupo_1",
	}, resp.Correspondence["city"])
	cities, _ := resp.Table.Column("city")
	assert.Equal(t, "grupo_1", cities[0])

	data, err := os.ReadFile(mappingPath)
	require.NoError(t, err)
	var saved catgroup.Correspondence
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, resp.Correspondence, saved)
}

func TestGroupingServiceErrors(t *testing.T) {
	ctx := context.Background()
	reader := &MockDatasetReader{}
	reader.On("Read", ctx, "in.csv").Return(correlatedTable(), nil)
	svc := NewGroupingService(reader, &MockDatasetWriter{})

	_, err := svc.Run(ctx, GroupingRequest{
		InputPath: "in.csv",
		Grouper:   catgroup.Grouper{Method: catgroup.KMeans, N: 2, Columns: []string{"kind"}, Target: "missing"},
	})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = svc.Run(ctx, GroupingRequest{
		InputPath: "in.csv",
		Grouper:   catgroup.Grouper{Method: catgroup.TopN, Columns: []string{"kind"}},
	})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}
