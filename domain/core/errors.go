package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrRunNotFound    = fmt.Errorf("%w: search run", ErrNotFound)
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)
	ErrNodeNotFound   = fmt.Errorf("%w: graph node", ErrNotFound)

	// Input errors
	ErrInvalidFeatureTypes   = errors.New("feature types do not match dataset columns")
	ErrInsufficientData      = errors.New("insufficient data for analysis")
	ErrUnknownTransformation = errors.New("unknown transformation")
	ErrUnknownRankingMode    = errors.New("unknown ranking mode")
	ErrInvalidBudget         = errors.New("budget must be positive")

	// Search termination
	ErrSearchExhausted = errors.New("no admissible transformation left")
	ErrBudgetReached   = errors.New("node budget reached")

	// Numeric failures
	ErrNonFinite = errors.New("non-finite value produced")
)

// Error constructors with context
func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
}

func NewRunNotFoundError(id RunID) error {
	return fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidFeatureTypes) ||
		errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrUnknownTransformation) ||
		errors.Is(err, ErrUnknownRankingMode) ||
		errors.Is(err, ErrInvalidBudget) ||
		errors.Is(err, ErrColumnNotFound)
}

func IsExhausted(err error) bool {
	return errors.Is(err, ErrSearchExhausted)
}
