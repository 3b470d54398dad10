package schedule

import (
	"fmt"
	"math"
)

// ColumnMatcher maps a cell's x coordinate to a day column index.
type ColumnMatcher interface {
	Match(x float64, columns []float64) (int, error)
}

// ExactMatcher requires the cell to start exactly at a column position.
type ExactMatcher struct{}

func (ExactMatcher) Match(x float64, columns []float64) (int, error) {
	return TolerantMatcher{}.Match(x, columns)
}

// TolerantMatcher accepts positions within Epsilon pixels of a column.
type TolerantMatcher struct {
	Epsilon float64
}

func (m TolerantMatcher) Match(x float64, columns []float64) (int, error) {
	found := -1
	for i, col := range columns {
		if math.Abs(col-x) > m.Epsilon {
			continue
		}
		if found >= 0 {
			return 0, fmt.Errorf("%w: x=%v is ambiguous between columns %d and %d", ErrUnmatchedColumn, x, found, i)
		}
		found = i
	}

	if found < 0 {
		return 0, fmt.Errorf("%w: x=%v", ErrUnmatchedColumn, x)
	}
	return found, nil
}
