package schedule

import (
	"errors"
	"fmt"
)

var (
	ErrMissingElement   = errors.New("required calendar element not found")
	ErrMalformedCell    = errors.New("malformed class cell")
	ErrUnmatchedColumn  = errors.New("cell position matches no calendar column")
	ErrInvalidWeekStart = errors.New("invalid week start date")
)

// ExtractError locates a failure within the calendar table.
type ExtractError struct {
	Row  int
	Cell int
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("row %d cell %d: %v", e.Row, e.Cell, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
