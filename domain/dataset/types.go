package dataset

import (
	"fmt"
	"strings"

	"featuregraph/domain/core"
)

// FeatureType classifies a column for encoding and transformation purposes
type FeatureType string

const (
	Categorical FeatureType = "Categorical"
	Numerical   FeatureType = "Numerical"
)

// ParseFeatureType accepts the canonical tags case-insensitively plus a few aliases
func ParseFeatureType(s string) (FeatureType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "categorical", "category", "cat":
		return Categorical, nil
	case "numerical", "numeric", "num":
		return Numerical, nil
	}
	return "", fmt.Errorf("%w: unknown feature type %q", core.ErrInvalidFeatureTypes, s)
}

// ParseFeatureTypes parses a comma separated list of feature types
func ParseFeatureTypes(list string) ([]FeatureType, error) {
	parts := strings.Split(list, ",")
	types := make([]FeatureType, 0, len(parts))
	for _, p := range parts {
		ft, err := ParseFeatureType(p)
		if err != nil {
			return nil, err
		}
		types = append(types, ft)
	}
	return types, nil
}

// Table is a raw tabular dataset: a header plus string cells, one slice per row.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewTable builds a table, padding short rows with empty cells
func NewTable(columns []string, rows [][]string) *Table {
	width := len(columns)
	padded := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) >= width {
			padded[i] = row[:width]
			continue
		}
		r := make([]string, width)
		copy(r, row)
		padded[i] = r
	}
	return &Table{Columns: columns, Rows: padded}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of a column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the cells of the named column
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, core.NewColumnNotFoundError(name)
	}
	cells := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	columns := append([]string(nil), t.Columns...)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return &Table{Columns: columns, Rows: rows}
}

// AppendColumn adds a column in place. cells must have one entry per row.
func (t *Table) AppendColumn(name string, cells []string) error {
	if len(cells) != len(t.Rows) {
		return fmt.Errorf("column %s has %d cells, table has %d rows", name, len(cells), len(t.Rows))
	}
	if t.ColumnIndex(name) >= 0 {
		return fmt.Errorf("column %s already exists", name)
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], cells[i])
	}
	return nil
}

// SetColumn replaces the cells of an existing column in place
func (t *Table) SetColumn(name string, cells []string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return core.NewColumnNotFoundError(name)
	}
	if len(cells) != len(t.Rows) {
		return fmt.Errorf("column %s has %d cells, table has %d rows", name, len(cells), len(t.Rows))
	}
	for i := range t.Rows {
		t.Rows[i][idx] = cells[i]
	}
	return nil
}

// DropColumns returns a new table without the named columns
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []int
	var columns []string
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
			columns = append(columns, c)
		}
	}
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(keep))
		for j, k := range keep {
			r[j] = row[k]
		}
		rows[i] = r
	}
	return &Table{Columns: columns, Rows: rows}
}

// CompleteRows returns the indexes of rows without any missing cell
func (t *Table) CompleteRows() []int {
	var complete []int
	for i, row := range t.Rows {
		ok := true
		for _, cell := range row {
			if IsMissing(cell) {
				ok = false
				break
			}
		}
		if ok {
			complete = append(complete, i)
		}
	}
	return complete
}
