package app

import (
	"context"
	"slices"

	"featuregraph/domain/dataset"
	"featuregraph/internal"
	"featuregraph/internal/errors"
	"featuregraph/internal/preselect"
	"featuregraph/ports"
)

// PreselectService drops redundant numeric columns before a search
type PreselectService struct {
	reader ports.DatasetReader
	writer ports.DatasetWriter
	log    *internal.Logger
}

// PreselectRequest defines one pre-selection
type PreselectRequest struct {
	InputPath  string
	OutputPath string
	Types      []dataset.FeatureType // inferred when empty
	Cutoff     float64
	// Keep lists columns never dropped, typically the target
	Keep []string
}

// PreselectResponse reports the dropped columns and the reduced table
type PreselectResponse struct {
	Dropped []string
	Table   *dataset.Table
}

// NewPreselectService creates a pre-selection service
func NewPreselectService(reader ports.DatasetReader, writer ports.DatasetWriter) *PreselectService {
	return &PreselectService{
		reader: reader,
		writer: writer,
		log:    internal.DefaultLogger.WithComponent("Preselect"),
	}
}

// Run fits the correlation selector on the rows whose analysed cells all
// parse as numbers and removes the selected columns
func (s *PreselectService) Run(ctx context.Context, req PreselectRequest) (*PreselectResponse, error) {
	if req.Cutoff <= 0 || req.Cutoff > 1 {
		return nil, errors.InvalidInput("cutoff must be in (0, 1]")
	}
	table, err := s.reader.Read(ctx, req.InputPath)
	if err != nil {
		return nil, errors.WithCode(errors.CodeIOError, err, "failed to read dataset")
	}
	types, err := resolveTypes(table, req.Types)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, err, "invalid feature types")
	}

	var excluded []int
	for j, name := range table.Columns {
		if types[j] == dataset.Categorical || slices.Contains(req.Keep, name) {
			excluded = append(excluded, j)
		}
	}

	X := numericMatrix(table, excluded)
	selector := preselect.NewCorrelation(req.Cutoff, excluded)
	if err := selector.Fit(X); err != nil {
		return nil, errors.Wrap(err, "correlation pre-selection failed")
	}

	var dropped []string
	for _, j := range selector.Support() {
		dropped = append(dropped, table.Columns[j])
	}
	out := table.DropColumns(dropped...)
	s.log.Info("dropped %d of %d columns from %s (%d rows analysed)", len(dropped), len(table.Columns), req.InputPath, len(X))

	if req.OutputPath != "" {
		if err := s.writer.Write(ctx, req.OutputPath, out); err != nil {
			return nil, errors.WithCode(errors.CodeIOError, err, "failed to write dataset")
		}
	}
	return &PreselectResponse{Dropped: dropped, Table: out}, nil
}

// numericMatrix keeps rows whose non-excluded cells all parse; excluded
// columns are filled with zeros
func numericMatrix(table *dataset.Table, excluded []int) [][]float64 {
	var X [][]float64
	for _, row := range table.Rows {
		values := make([]float64, len(row))
		ok := true
		for j, cell := range row {
			if slices.Contains(excluded, j) {
				continue
			}
			if values[j], ok = dataset.ParseNumber(cell); !ok {
				break
			}
		}
		if ok {
			X = append(X, values)
		}
	}
	return X
}
