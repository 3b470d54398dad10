package schedule

import "strings"

// ClassBackground is the inline style the calendar puts on class cells.
const ClassBackground = "background-color:rgb(182,209,146)"

// CellFilter decides whether a table cell holds a class.
type CellFilter interface {
	IsClass(cell Cell) bool
}

// BackgroundFilter selects cells carrying a background color marker.
type BackgroundFilter struct {
	// Style is the marker to look for. Empty means ClassBackground.
	Style string
}

func (f BackgroundFilter) IsClass(cell Cell) bool {
	style := f.Style
	if style == "" {
		style = ClassBackground
	}
	return strings.Contains(compactStyle(cell.HTML), compactStyle(style))
}

// compactStyle drops whitespace and case so "RGB(182, 209, 146)" and
// "rgb(182,209,146)" compare equal.
func compactStyle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// EmptyMarkerFilter selects every cell with visible text.
type EmptyMarkerFilter struct{}

func (EmptyMarkerFilter) IsClass(cell Cell) bool {
	return cellText(cell.HTML) != ""
}
