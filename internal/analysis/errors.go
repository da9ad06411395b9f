package analysis

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound indicates a role references a column the dataset lacks.
var ErrColumnNotFound = errors.New("column not found")

// ErrEmptyTransactionSet indicates the transaction column has no values, so
// per-transaction averages are not computable.
var ErrEmptyTransactionSet = errors.New("no transactions")

// DateCoercionError indicates a selected date column holds values that are
// not dates.
type DateCoercionError struct {
	Column string
	Value  string
	Row    int
	// Mixed means the value is a date, but in another convention than the
	// rest of the column.
	Mixed bool
}

func (e *DateCoercionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("column %q has no date values", e.Column)
	}
	if e.Mixed {
		return fmt.Sprintf("column %q mixes month-first and day-first dates (value %q in row %d)", e.Column, e.Value, e.Row)
	}
	return fmt.Sprintf("column %q: value %q in row %d is not a valid date", e.Column, e.Value, e.Row)
}
