package search

import (
	"fmt"

	"featuregraph/domain/dataset"
)

// ApplyTransformation returns a copy of frame extended by the named
// transformation. Columns the transformation cannot produce are left out;
// only an unknown name is an error.
func (s *Search) ApplyTransformation(frame *dataset.Frame, name string) (*dataset.Frame, error) {
	c, err := CategoryOf(name)
	if err != nil {
		return nil, err
	}
	if c == Time {
		return s.applyTime(frame, name)
	}
	out := frame.Copy()
	switch c {
	case Numeric:
		s.applyNumeric(out, name)
	case Grouped:
		s.applyGrouped(out, name)
	}
	return out, nil
}

func (s *Search) applyNumeric(out *dataset.Frame, name string) {
	for _, col := range s.numeric {
		values, ok := out.Column(col)
		if !ok {
			continue
		}
		target := NumericColumnName(name, col)
		derived, err := unaryColumn(name, values)
		if err != nil {
			s.log.Debug("dropping %s: %v", target, err)
			out.Drop(target)
			continue
		}
		_ = out.Set(target, derived)
	}
}

func (s *Search) applyGrouped(out *dataset.Frame, name string) {
	group := s.cfg.GroupColumn
	labels, ok := out.Column(group)
	if group == "" || !ok {
		return
	}

	rowsByLabel := make(map[float64][]int, len(s.groupLabels))
	for i, l := range labels {
		rowsByLabel[l] = append(rowsByLabel[l], i)
	}

	for _, col := range s.numeric {
		if col == group {
			continue
		}
		values, ok := out.Column(col)
		if !ok {
			continue
		}
		target := GroupedColumnName(group, name, col)
		derived, err := groupAggregate(name, values, s.groupLabels, rowsByLabel)
		if err != nil {
			s.log.Debug("dropping %s: %v", target, err)
			out.Drop(target)
			continue
		}
		_ = out.Set(target, derived)
	}
}

// groupAggregate computes the aggregate per label and broadcasts it to the
// rows carrying that label.
func groupAggregate(name string, values, labels []float64, rowsByLabel map[float64][]int) ([]float64, error) {
	derived := make([]float64, len(values))
	for _, label := range labels {
		rows := rowsByLabel[label]
		if len(rows) == 0 {
			continue
		}
		group := make([]float64, len(rows))
		for k, r := range rows {
			group[k] = values[r]
		}
		v, err := aggregate(name, group)
		if err != nil {
			return nil, fmt.Errorf("group %g: %w", label, err)
		}
		for _, r := range rows {
			derived[r] = v
		}
	}
	return derived, nil
}

// applyTime attaches one component of the date column unless it is constant
func (s *Search) applyTime(frame *dataset.Frame, name string) (*dataset.Frame, error) {
	if len(s.dates) == 0 {
		return frame.Copy(), nil
	}
	derived := make([]float64, len(s.dates))
	distinct := make(map[float64]bool)
	for i, t := range s.dates {
		v, err := timeComponent(name, t)
		if err != nil {
			return nil, err
		}
		derived[i] = v
		distinct[v] = true
	}
	target := NumericColumnName(name, s.cfg.DateColumn)
	if len(distinct) <= 1 {
		s.log.Debug("dropping constant %s", target)
		return frame.Copy(), nil
	}
	return frame.With(target, derived)
}
