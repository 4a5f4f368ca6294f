/*
errors.go - Centralized error types for the allocation boundary

PURPOSE:
  The engine itself never fails: it computes through any input. These errors
  belong to the layers around it (import validation, edit validation,
  persistence) and are collected here so callers can classify them.

ERROR CATEGORIES:
  1. Validation errors - Malformed columns, path segments, percentages, budgets
  2. Store errors - Missing sessions, empty catalogs

USAGE:
  if hierarchy.IsClientError(err) {
      // 400
  }
*/
package hierarchy

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSessionNotFound is returned when a referenced session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNodeNotFound is returned when an edit targets a path that is not in the tree.
	ErrNodeNotFound = errors.New("hierarchy node not found")

	// ErrInvalidColumns is returned when hierarchy levels are not 1..L contiguous
	// or column names repeat.
	ErrInvalidColumns = errors.New("invalid hierarchy columns")

	// ErrInvalidPercentage is returned by the edit boundary for values outside [0, 100].
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

	// ErrInvalidBudget is returned when the total budget is not positive.
	ErrInvalidBudget = errors.New("total budget must be positive")

	// ErrEmptyCatalog is returned when an import yields no usable SKU.
	ErrEmptyCatalog = errors.New("catalog contains no valid SKUs")

	// ErrInvalidSegment is returned when a SKU code or attribute value
	// contains PathSeparator.
	ErrInvalidSegment = errors.New("invalid path segment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ColumnError describes which hierarchy column definition is invalid.
type ColumnError struct {
	Level  int
	Name   string
	Reason string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q (level %d): %s", e.Name, e.Level, e.Reason)
}

func (e *ColumnError) Unwrap() error {
	return ErrInvalidColumns
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidColumns) ||
		errors.Is(err, ErrInvalidPercentage) ||
		errors.Is(err, ErrInvalidBudget) ||
		errors.Is(err, ErrEmptyCatalog) ||
		errors.Is(err, ErrInvalidSegment)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNodeNotFound)
}
