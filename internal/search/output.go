package search

import (
	"fmt"
	"math"
	"strings"

	"featuregraph/domain/dataset"
)

// Result is the outcome of a search run
type Result struct {
	Data        *dataset.Table
	Types       []dataset.FeatureType
	Replay      ReplayRecord
	NewColumns  []string
	Root        *Node
	Best        *Node
	Graph       *Graph
	Task        string
	Termination Termination
}

// BestNode returns the node the output is built from: the best ranked
// admissible node, or the root when no transformation produced a node.
func (s *Search) BestNode() *Node {
	n, _ := s.graph.Node(s.selectNode())
	return n
}

// FormatOutput projects the best node's new columns onto the original
// table. Rows dropped during preprocessing get the value the replay record
// computes for them, so replaying on the input reproduces the output; cells
// it cannot compute stay empty.
func (s *Search) FormatOutput(termination Termination) (*Result, error) {
	if s.graph == nil {
		return nil, fmt.Errorf("search not preprocessed")
	}
	best := s.BestNode()

	out := s.data.Clone()
	types := append([]dataset.FeatureType(nil), s.types...)
	replay := ReplayRecord{}
	var added []string

	for _, name := range best.Frame.Names() {
		if s.data.ColumnIndex(name) >= 0 {
			continue
		}
		values, _ := best.Frame.Column(name)
		entry := s.replayEntry(name, best.Frame, values)

		cells := make([]string, s.data.Len())
		if replayed, err := (ReplayRecord{name: entry}).replayColumn(s.data, name); err == nil {
			copy(cells, replayed)
		} else {
			s.log.Warn("rows outside the search left empty for %s: %v", name, err)
		}
		for k, r := range s.kept {
			cells[r] = ""
			if !math.IsNaN(values[k]) {
				cells[r] = dataset.FormatNumber(values[k])
			}
		}
		if err := out.AppendColumn(name, cells); err != nil {
			return nil, err
		}
		types = append(types, dataset.Numerical)
		replay[name] = entry
		added = append(added, name)
	}

	return &Result{
		Data:        out,
		Types:       types,
		Replay:      replay,
		NewColumns:  added,
		Root:        s.graph.Root(),
		Best:        best,
		Graph:       s.graph,
		Task:        s.task.String(),
		Termination: termination,
	}, nil
}

// replayEntry records, for grouped columns, the value computed for each
// group keyed by the group's original cell.
func (s *Search) replayEntry(name string, frame *dataset.Frame, values []float64) ReplayEntry {
	parts := strings.Split(name, ColumnSeparator)
	if len(parts) != 3 {
		return ReplayEntry{}
	}
	if c, err := CategoryOf(parts[1]); err != nil || c != Grouped {
		return ReplayEntry{}
	}
	groupIdx := s.data.ColumnIndex(parts[0])
	if !frame.Has(parts[0]) || groupIdx < 0 {
		return ReplayEntry{}
	}

	groups := make(map[string]float64, len(s.groupLabels))
	for k, r := range s.kept {
		key := s.data.Rows[r][groupIdx]
		if _, seen := groups[key]; !seen {
			groups[key] = values[k]
		}
	}
	return ReplayEntry{Groups: groups}
}
