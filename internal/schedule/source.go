package schedule

import "context"

// Cell is one table cell as rendered by the calendar page.
type Cell struct {
	// X is the left edge of the cell's bounding box in pixels.
	X float64 `json:"x"`
	// HTML is the cell's inner markup, including the styled wrapper.
	HTML string `json:"html"`
	// Content is the inner markup of the cell's first child element.
	Content string `json:"content"`
}

// Row is one table row. Row 0 of a calendar table is the day header.
type Row struct {
	Cells []Cell `json:"cells"`
}

// CalendarSource exposes the weekly calendar currently on screen.
type CalendarSource interface {
	// WeekStartDate returns the raw value of the week start field.
	WeekStartDate(ctx context.Context) (string, error)
	// Rows returns the table rows in document order, header first.
	Rows(ctx context.Context) ([]Row, error)
	// ColumnPositions returns the x coordinate of each day column, leftmost first.
	ColumnPositions(ctx context.Context) ([]float64, error)
	// CellText returns the markup holding the class details of a cell.
	CellText(cell Cell) (string, error)
}

// WeekView is a loaded snapshot of one calendar week.
type WeekView struct {
	Start   WeekStart
	Columns []float64
	Rows    []Row
}
