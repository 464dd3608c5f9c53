package views

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDataInRange is matched by NoDataInRangeError.
	ErrNoDataInRange = errors.New("no data for this selection")
	// ErrUnknownColumn is matched by UnknownColumnError.
	ErrUnknownColumn = errors.New("unknown column")
)

// NoDataInRangeError reports a pairwise selection that leaves no rows, so
// there is no year bound to resolve.
type NoDataInRangeError struct {
	X, Y     string
	From, To int
}

func (e *NoDataInRangeError) Error() string {
	return fmt.Sprintf("no rows with both %q and %q in years [%d, %d)", e.X, e.Y, e.From, e.To)
}

func (e *NoDataInRangeError) Unwrap() error { return ErrNoDataInRange }

// UnknownColumnError reports a selected column that the dataset lacks.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}

func (e *UnknownColumnError) Unwrap() error { return ErrUnknownColumn }

// Notice translates a per-interaction error into the text shown in place
// of a chart.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoDataInRange):
		return "No data for this selection."
	case errors.Is(err, ErrUnknownColumn):
		var uc *UnknownColumnError
		if errors.As(err, &uc) {
			return fmt.Sprintf("Column %q is not available.", uc.Column)
		}
		return "Column is not available."
	default:
		return "This view could not be computed."
	}
}
