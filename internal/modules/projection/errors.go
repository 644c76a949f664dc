package projection

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRow marks input rows that are missing or carry unusable values.
	ErrMalformedRow = errors.New("malformed holding row")
	// ErrInvalidParameters marks degenerate run parameters.
	ErrInvalidParameters = errors.New("invalid projection parameters")
	// ErrNonPositivePrice is returned when growth drives a share price to zero or below.
	ErrNonPositivePrice = errors.New("share price is not positive")
	// ErrInvalidState is returned when compounding produces a non-finite or negative value.
	ErrInvalidState = errors.New("invalid holding state")
	// ErrHorizonReached is returned by Engine.Step once every configured year has run.
	ErrHorizonReached = errors.New("projection horizon reached")
)

// RowError reports which input row and field rejected the run.
type RowError struct {
	Row    int    // 1-based data row, header excluded
	Symbol string // empty when the symbol itself is the problem
	Field  string
	Value  string
	Reason string
}

func (e *RowError) Error() string {
	where := fmt.Sprintf("row %d", e.Row)
	if e.Symbol != "" {
		where = fmt.Sprintf("row %d (%s)", e.Row, e.Symbol)
	}
	if e.Value != "" {
		return fmt.Sprintf("%s: field %q value %q %s", where, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: field %q %s", where, e.Field, e.Reason)
}

// Unwrap lets callers test for ErrMalformedRow with errors.Is.
func (e *RowError) Unwrap() error {
	return ErrMalformedRow
}

// IsValidationError reports whether err was caused by bad input rather than a failure
// during the run.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMalformedRow) || errors.Is(err, ErrInvalidParameters)
}
