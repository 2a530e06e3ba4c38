package dataset

import (
	"fmt"
)

// Frame is an ordered set of equally long numeric columns.
//
// Column slices are shared between frames and are never written after they
// have been added, so Copy only duplicates the column index.
type Frame struct {
	names []string
	cols  map[string][]float64
	rows  int
}

// NewFrame creates an empty frame with a fixed row count
func NewFrame(rows int) *Frame {
	return &Frame{cols: make(map[string][]float64), rows: rows}
}

// Rows returns the number of rows
func (f *Frame) Rows() int { return f.rows }

// Width returns the number of columns
func (f *Frame) Width() int { return len(f.names) }

// Names returns the column names in order
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Has reports whether the frame holds the named column
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.cols[name]
	return v, ok
}

// Set adds or replaces a column. Only call it on frames that have not been
// handed out yet (a fresh NewFrame or the result of Copy).
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != f.rows {
		return fmt.Errorf("column %s has %d values, frame has %d rows", name, len(values), f.rows)
	}
	if _, ok := f.cols[name]; !ok {
		f.names = append(f.names, name)
	}
	f.cols[name] = values
	return nil
}

// Drop removes a column if present
func (f *Frame) Drop(name string) {
	if _, ok := f.cols[name]; !ok {
		return
	}
	delete(f.cols, name)
	for i, n := range f.names {
		if n == name {
			f.names = append(f.names[:i:i], f.names[i+1:]...)
			break
		}
	}
}

// Copy returns a frame with its own column index
func (f *Frame) Copy() *Frame {
	c := &Frame{
		names: append([]string(nil), f.names...),
		cols:  make(map[string][]float64, len(f.cols)),
		rows:  f.rows,
	}
	for k, v := range f.cols {
		c.cols[k] = v
	}
	return c
}

// Matrix returns the frame as row-major samples in column order
func (f *Frame) Matrix() [][]float64 {
	m := make([][]float64, f.rows)
	for i := range m {
		m[i] = make([]float64, len(f.names))
	}
	for j, name := range f.names {
		for i, v := range f.cols[name] {
			m[i][j] = v
		}
	}
	return m
}

// With returns a copy of the frame with the named column added or replaced
func (f *Frame) With(name string, values []float64) (*Frame, error) {
	c := f.Copy()
	if err := c.Set(name, values); err != nil {
		return nil, err
	}
	return c, nil
}
