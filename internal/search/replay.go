package search

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"featuregraph/domain/dataset"
)

// ReplayEntry describes how to rebuild one discovered column. Ungrouped
// columns are recomputed from their name alone; grouped columns carry the
// aggregate per original group key.
type ReplayEntry struct {
	Groups map[string]float64
}

// Grouped reports whether the entry carries per-group values
func (e ReplayEntry) Grouped() bool { return e.Groups != nil }

// MarshalJSON writes "" for ungrouped entries and an object otherwise
func (e ReplayEntry) MarshalJSON() ([]byte, error) {
	if e.Groups == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(e.Groups)
}

// UnmarshalJSON accepts either form written by MarshalJSON
func (e *ReplayEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Groups = nil
		return nil
	}
	groups := map[string]float64{}
	if err := json.Unmarshal(data, &groups); err != nil {
		return fmt.Errorf("replay entry: %w", err)
	}
	e.Groups = groups
	return nil
}

// ReplayRecord maps each discovered column to its replay entry
type ReplayRecord map[string]ReplayEntry

// Columns returns the recorded column names in sorted order
func (r ReplayRecord) Columns() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply recomputes every recorded column on a copy of table. Cells that
// cannot be computed (missing inputs, unknown group keys, values outside a
// function's domain) are left empty.
func (r ReplayRecord) Apply(table *dataset.Table) (*dataset.Table, error) {
	out := table.Clone()
	for _, name := range r.Columns() {
		cells, err := r.replayColumn(out, name)
		if err != nil {
			return nil, err
		}
		if out.ColumnIndex(name) >= 0 {
			err = out.SetColumn(name, cells)
		} else {
			err = out.AppendColumn(name, cells)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r ReplayRecord) replayColumn(table *dataset.Table, name string) ([]string, error) {
	entry := r[name]
	parts := strings.Split(name, ColumnSeparator)

	if entry.Grouped() {
		if len(parts) != 3 {
			return nil, fmt.Errorf("grouped column %q does not name group, transformation and source", name)
		}
		keys, err := table.Column(parts[0])
		if err != nil {
			return nil, err
		}
		cells := make([]string, len(keys))
		for i, k := range keys {
			if v, ok := entry.Groups[k]; ok {
				cells[i] = dataset.FormatNumber(v)
			}
		}
		return cells, nil
	}

	if len(parts) != 2 {
		return nil, fmt.Errorf("column %q does not name transformation and source", name)
	}
	transformation, source := parts[0], parts[1]
	category, err := CategoryOf(transformation)
	if err != nil {
		return nil, err
	}
	raw, err := table.Column(source)
	if err != nil {
		return nil, err
	}

	cells := make([]string, len(raw))
	for i, c := range raw {
		switch category {
		case Numeric:
			x, ok := dataset.ParseNumber(c)
			if !ok {
				continue
			}
			if v, err := unary(transformation, x); err == nil {
				cells[i] = dataset.FormatNumber(v)
			}
		case Time:
			t, ok := dataset.ParseTime(c)
			if !ok {
				continue
			}
			if v, err := timeComponent(transformation, t); err == nil {
				cells[i] = dataset.FormatNumber(v)
			}
		default:
			return nil, fmt.Errorf("column %q: %s transformations need group values", name, category)
		}
	}
	return cells, nil
}
