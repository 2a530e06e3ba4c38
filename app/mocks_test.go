package app

import (
	"context"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
	"featuregraph/domain/run"

	"github.com/stretchr/testify/mock"
)

type MockDatasetReader struct {
	mock.Mock
}

func (m *MockDatasetReader) Read(ctx context.Context, path string) (*dataset.Table, error) {
	args := m.Called(ctx, path)
	if t := args.Get(0); t != nil {
		return t.(*dataset.Table).Clone(), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDatasetWriter struct {
	mock.Mock
	written map[string]*dataset.Table
}

func (m *MockDatasetWriter) Write(ctx context.Context, path string, table *dataset.Table) error {
	args := m.Called(ctx, path, table)
	if m.written == nil {
		m.written = make(map[string]*dataset.Table)
	}
	m.written[path] = table
	return args.Error(0)
}

type MockSearchRunRepository struct {
	mock.Mock
	saved []*run.SearchRun
}

func (m *MockSearchRunRepository) Save(ctx context.Context, r *run.SearchRun) error {
	args := m.Called(ctx, r)
	m.saved = append(m.saved, r)
	return args.Error(0)
}

func (m *MockSearchRunRepository) Get(ctx context.Context, id core.RunID) (*run.SearchRun, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*run.SearchRun), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSearchRunRepository) List(ctx context.Context, limit int) ([]run.Summary, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]run.Summary), args.Error(1)
}
