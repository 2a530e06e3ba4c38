package run

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"featuregraph/domain/core"
	"featuregraph/domain/dataset"
)

// Settings are the parameters that determine a search outcome
type Settings struct {
	Target      string `json:"target"`
	GroupColumn string `json:"group_column,omitempty"`
	DateColumn  string `json:"date_column,omitempty"`
	Budget      int    `json:"budget"`
	Ranking     string `json:"ranking"`
	Folds       int    `json:"folds"`
	Seed        int64  `json:"seed"`
}

// SearchRun is the persisted record of one transformation search
type SearchRun struct {
	ID          core.RunID      `json:"id"`
	Dataset     string          `json:"dataset"`
	Settings    Settings        `json:"settings"`
	Fingerprint string          `json:"fingerprint"`
	Task        string          `json:"task"`
	Termination string          `json:"termination"`
	RootReward  float64         `json:"root_reward"`
	BestNode    int             `json:"best_node"`
	BestReward  float64         `json:"best_reward"`
	NewColumns  []string        `json:"new_columns"`
	Replay      json.RawMessage `json:"replay"`
	Nodes       []NodeRecord    `json:"nodes"`
	StartedAt   time.Time       `json:"started_at"`
	Duration    time.Duration   `json:"duration"`
}

// NodeRecord is the persisted form of one graph node
type NodeRecord struct {
	ID          int      `json:"id"`
	Parent      int      `json:"parent"`
	Level       int      `json:"level"`
	Reward      float64  `json:"reward"`
	Cumulative  float64  `json:"cumulative"`
	Improvement float64  `json:"improvement"`
	Applied     []string `json:"applied"`
	Columns     []string `json:"columns"`
}

// Summary is the listing view of a run
type Summary struct {
	ID          core.RunID
	Dataset     string
	Target      string
	Termination string
	RootReward  float64
	BestReward  float64
	Nodes       int
	StartedAt   time.Time
}

// Validate checks that a run record can be stored
func (r *SearchRun) Validate() error {
	if r.ID.IsEmpty() {
		return core.NewValidationError("id", "is required")
	}
	if r.Settings.Target == "" {
		return core.NewValidationError("settings.target", "is required")
	}
	if len(r.Nodes) == 0 {
		return core.NewValidationError("nodes", "a run has at least the root node")
	}
	if r.BestNode < 0 || r.BestNode >= len(r.Nodes) {
		return core.NewValidationError("best_node", fmt.Sprintf("%d is not a node of the run", r.BestNode))
	}
	return nil
}

// Fingerprint identifies a search by its input data and settings; equal
// fingerprints produce equal graphs.
func Fingerprint(table *dataset.Table, types []dataset.FeatureType, s Settings) string {
	h := sha256.New()
	fmt.Fprintf(h, "columns:%s\n", strings.Join(table.Columns, "\x1f"))
	for _, t := range types {
		fmt.Fprintf(h, "type:%s\n", t)
	}
	for _, row := range table.Rows {
		fmt.Fprintf(h, "row:%s\n", strings.Join(row, "\x1f"))
	}
	fmt.Fprintf(h, "target:%s|group:%s|date:%s|budget:%d|ranking:%s|folds:%d|seed:%d",
		s.Target, s.GroupColumn, s.DateColumn, s.Budget, s.Ranking, s.Folds, s.Seed)
	return fmt.Sprintf("%x", h.Sum(nil))
}
