package sis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

// snapshotScript captures the calendar in one round-trip so every read
// of a week sees the same DOM state.
const snapshotScript = `(sel) => {
	const input = document.querySelector(sel.weekStart);
	const body = document.querySelector(sel.body);
	const rows = body ? Array.from(body.children).map((tr) => ({
		cells: Array.from(tr.children).map((td) => ({
			x: td.getBoundingClientRect().x,
			html: td.innerHTML,
			content: td.children.length > 0 ? td.children[0].innerHTML : td.innerHTML,
		})),
	})) : [];
	return {
		weekStart: input ? input.value : "",
		weekStartFound: !!input,
		tableFound: !!body,
		rows: rows,
	};
}`

// Snapshot is a frozen copy of the calendar table. It implements
// schedule.CalendarSource. Build one with ParseSnapshot so the label column
// and position row settings are applied.
type Snapshot struct {
	WeekStart      string         `json:"weekStart"`
	WeekStartFound bool           `json:"weekStartFound"`
	TableFound     bool           `json:"tableFound"`
	Table          []schedule.Row `json:"rows"`

	labelColumns int
	positionRow  int
}

// ParseSnapshot decodes a snapshot saved as JSON, such as a recorded page
// fixture, and applies the table layout from sel.
func ParseSnapshot(data []byte, sel Selectors) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode calendar snapshot: %w", err)
	}
	snap.labelColumns = sel.LabelColumns
	snap.positionRow = sel.PositionRow

	return snap, nil
}

// decodeSnapshot converts the evaluation result into a Snapshot.
func decodeSnapshot(raw any, sel Selectors) (*Snapshot, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calendar snapshot: %w", err)
	}
	return ParseSnapshot(data, sel)
}

func (s *Snapshot) WeekStartDate(ctx context.Context) (string, error) {
	if !s.WeekStartFound {
		return "", fmt.Errorf("%w: week start field", schedule.ErrMissingElement)
	}
	return s.WeekStart, nil
}

func (s *Snapshot) Rows(ctx context.Context) ([]schedule.Row, error) {
	if !s.TableFound {
		return nil, fmt.Errorf("%w: calendar table", schedule.ErrMissingElement)
	}
	return s.Table, nil
}

// ColumnPositions returns the x coordinate of each day column, taken from
// the position row with the leading label cells removed.
func (s *Snapshot) ColumnPositions(ctx context.Context) ([]float64, error) {
	if !s.TableFound || s.positionRow >= len(s.Table) {
		return nil, fmt.Errorf("%w: calendar header row", schedule.ErrMissingElement)
	}

	cells := s.Table[s.positionRow].Cells
	if len(cells) <= s.labelColumns {
		return nil, fmt.Errorf("%w: calendar has no day columns", schedule.ErrMissingElement)
	}

	positions := make([]float64, 0, len(cells)-s.labelColumns)
	for _, c := range cells[s.labelColumns:] {
		positions = append(positions, c.X)
	}
	return positions, nil
}

func (s *Snapshot) CellText(cell schedule.Cell) (string, error) {
	return cell.Content, nil
}
