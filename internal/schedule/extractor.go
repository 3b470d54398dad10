package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// DaysPerWeek bounds the number of day columns a calendar may show.
const DaysPerWeek = 7

// Extractor turns a rendered weekly calendar into class entries.
type Extractor struct {
	filter   CellFilter
	matcher  ColumnMatcher
	firstDay time.Weekday
	logger   *slog.Logger
}

type Option func(*Extractor)

func WithCellFilter(f CellFilter) Option {
	return func(e *Extractor) { e.filter = f }
}

func WithColumnMatcher(m ColumnMatcher) Option {
	return func(e *Extractor) { e.matcher = m }
}

// WithFirstWeekday sets the day week starts are normalized to.
func WithFirstWeekday(d time.Weekday) Option {
	return func(e *Extractor) { e.firstDay = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor returns an extractor that selects cells by background color,
// matches columns exactly and starts weeks on Monday unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		filter:   BackgroundFilter{},
		matcher:  ExactMatcher{},
		firstDay: time.Monday,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "extractor")
	return e
}

// Load reads the week start, rows and column positions from src.
func (e *Extractor) Load(ctx context.Context, src CalendarSource) (*WeekView, error) {
	raw, err := src.WeekStartDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("read week start: %w", err)
	}
	start, err := ParseWeekStart(raw)
	if err != nil {
		return nil, err
	}

	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read calendar rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: calendar table has no rows", ErrMissingElement)
	}

	columns, err := src.ColumnPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read column positions: %w", err)
	}
	if len(columns) == 0 || len(columns) > DaysPerWeek {
		return nil, fmt.Errorf("%w: calendar has %d day columns", ErrMissingElement, len(columns))
	}

	return &WeekView{
		Start:   NormalizeWeekStart(start, e.firstDay),
		Columns: columns,
		Rows:    rows,
	}, nil
}

// Extract returns every class shown in the calendar, in row then cell order.
// The first malformed class cell aborts extraction with an *ExtractError.
func (e *Extractor) Extract(ctx context.Context, src CalendarSource) ([]models.ClassEntry, error) {
	view, err := e.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	entries := []models.ClassEntry{}
	for r := 1; r < len(view.Rows); r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c, cell := range view.Rows[r].Cells {
			if e.isLabel(view, cell) || !e.filter.IsClass(cell) {
				continue
			}
			entry, err := e.parseCell(view, cell, src)
			if err != nil {
				return nil, &ExtractError{Row: r, Cell: c, Err: err}
			}
			entries = append(entries, entry)
		}
	}

	e.logger.Debug("extracted week",
		"week_start", view.Start.String(),
		"rows", len(view.Rows)-1,
		"classes", len(entries))

	return entries, nil
}

// isLabel reports whether cell sits left of every day column without
// matching one, as the time labels leading each row do.
func (e *Extractor) isLabel(view *WeekView, cell Cell) bool {
	for _, col := range view.Columns {
		if cell.X >= col {
			return false
		}
	}
	_, err := e.matcher.Match(cell.X, view.Columns)
	return err != nil
}

func (e *Extractor) parseCell(view *WeekView, cell Cell, src CalendarSource) (models.ClassEntry, error) {
	offset, err := e.matcher.Match(cell.X, view.Columns)
	if err != nil {
		return models.ClassEntry{}, err
	}

	text, err := src.CellText(cell)
	if err != nil {
		return models.ClassEntry{}, err
	}
	segs, err := SplitCell(text)
	if err != nil {
		return models.ClassEntry{}, err
	}
	if len(segs) < CellSegments {
		return models.ClassEntry{}, fmt.Errorf("%w: %d segments, want at least %d", ErrMalformedCell, len(segs), CellSegments)
	}
	for _, i := range []int{segDetail, segCode, segType, segTimes, segLocation} {
		if segs[i] == "" {
			return models.ClassEntry{}, fmt.Errorf("%w: segment %d is empty", ErrMalformedCell, i)
		}
	}

	start, end, err := ParseTimeRange(segs[segTimes])
	if err != nil {
		return models.ClassEntry{}, err
	}
	if end.Minutes() < start.Minutes() {
		e.logger.Warn("class ends before it starts",
			"class", segs[segCode],
			"times", segs[segTimes])
	}

	description := segs[segDetail]
	if instructor := segs[segInstructor]; instructor != "" {
		description += "\n" + instructor
	}

	return models.ClassEntry{
		Name:        fmt.Sprintf("%s (%s)", segs[segCode], segs[segType]),
		Description: description,
		Location:    segs[segLocation],
		Date:        view.Start.AddDays(offset),
		StartTime:   start,
		EndTime:     end,
	}, nil
}
