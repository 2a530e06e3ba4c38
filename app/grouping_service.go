package app

import (
	"context"
	"encoding/json"
	"os"

	"featuregraph/domain/dataset"
	"featuregraph/internal"
	"featuregraph/internal/catgroup"
	"featuregraph/internal/errors"
	"featuregraph/internal/learn"
	"featuregraph/ports"
)

// GroupingService merges categories of categorical columns
type GroupingService struct {
	reader ports.DatasetReader
	writer ports.DatasetWriter
	log    *internal.Logger
}

// GroupingRequest defines one regrouping. Grouper.Task is derived from the
// target column type.
type GroupingRequest struct {
	InputPath   string
	OutputPath  string
	MappingPath string // correspondence JSON, optional
	Types       []dataset.FeatureType
	Grouper     catgroup.Grouper
}

// GroupingResponse holds the regrouped table and the category mapping
type GroupingResponse struct {
	Table          *dataset.Table
	Correspondence catgroup.Correspondence
}

// NewGroupingService creates a grouping service
func NewGroupingService(reader ports.DatasetReader, writer ports.DatasetWriter) *GroupingService {
	return &GroupingService{
		reader: reader,
		writer: writer,
		log:    internal.DefaultLogger.WithComponent("Grouping"),
	}
}

// Run regroups the requested columns and writes the outputs
func (s *GroupingService) Run(ctx context.Context, req GroupingRequest) (*GroupingResponse, error) {
	table, err := s.reader.Read(ctx, req.InputPath)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIOError, err, "failed to read dataset")
	}
	types, err := resolveTypes(table, req.Types)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "invalid feature types")
	}

	g := req.Grouper
	if g.Target != "" {
		idx := table.ColumnIndex(g.Target)
		if idx < 0 {
			return nil, errors.InvalidInput("target column " + g.Target + " not found")
		}
		g.Task = learn.Regression
		if types[idx] == dataset.Categorical {
			g.Task = learn.Classification
		}
	}

	out, corr, err := g.FitTransform(table)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "grouping failed")
	}
	for col, mapping := range corr {
		groups := map[string]bool{}
		for _, v := range mapping {
			groups[v] = true
		}
		s.log.Info("%s: %d categories -> %d groups (%s)", col, len(mapping), len(groups), g.Method)
	}

	if req.OutputPath != "" {
		if err := s.writer.Write(ctx, req.OutputPath, out); err != nil {
			return nil, errors.WithCode(errors.CodeIOError, err, "failed to write dataset")
		}
	}
	if req.MappingPath != "" {
		data, err := json.MarshalIndent(corr, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode correspondence")
		}
		if err := os.WriteFile(req.MappingPath, data, 0o644); err != nil {
			return nil, errors.WithCode(errors.CodeIOError, err, "failed to write correspondence")
		}
	}
	return &GroupingResponse{Table: out, Correspondence: corr}, nil
}
