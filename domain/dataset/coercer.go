package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// missingMarkers are cell contents treated as absent values (compared lower-cased)
var missingMarkers = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"#n/a": true,
}

// timeLayouts are tried in order when parsing date cells
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"02-Jan-2006",
}

// NumericThreshold is the share of non-missing cells that must parse as numbers
// for InferTypes to call a column numerical.
const NumericThreshold = 0.8

// IsMissing reports whether a raw cell holds no value
func IsMissing(cell string) bool {
	return missingMarkers[strings.ToLower(strings.TrimSpace(cell))]
}

// ParseNumber parses a finite numeric cell, tolerating surrounding spaces.
// Infinities are rejected like any other unparseable cell.
func ParseNumber(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if IsMissing(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ParseTime parses a date/time cell using the known layouts or unix seconds
func ParseTime(cell string) (time.Time, bool) {
	s := strings.TrimSpace(cell)
	if IsMissing(s) {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil && unix > 0 && unix < 2147483647 {
		return time.Unix(unix, 0).UTC(), true
	}
	return time.Time{}, false
}

// FormatNumber renders a float so that ParseNumber returns the same value
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// InferTypes classifies every column of the table as numerical or categorical
func InferTypes(t *Table) []FeatureType {
	types := make([]FeatureType, len(t.Columns))
	for j := range t.Columns {
		valid, numeric := 0, 0
		for _, row := range t.Rows {
			if IsMissing(row[j]) {
				continue
			}
			valid++
			if _, ok := ParseNumber(row[j]); ok {
				numeric++
			}
		}
		if valid > 0 && float64(numeric)/float64(valid) >= NumericThreshold {
			types[j] = Numerical
		} else {
			types[j] = Categorical
		}
	}
	return types
}
