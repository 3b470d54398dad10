package config

import (
	"log/slog"

	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

// ExtractorOptions translates the SIS settings into extractor strategies.
func (c SISConfig) ExtractorOptions(logger *slog.Logger) ([]schedule.Option, error) {
	first, err := ParseWeekday(c.FirstWeekday)
	if err != nil {
		return nil, err
	}

	opts := []schedule.Option{
		schedule.WithFirstWeekday(first),
		schedule.WithLogger(logger),
	}

	if c.CellFilter == "text" {
		opts = append(opts, schedule.WithCellFilter(schedule.EmptyMarkerFilter{}))
	}
	if c.ColumnTolerance > 0 {
		opts = append(opts, schedule.WithColumnMatcher(schedule.TolerantMatcher{Epsilon: c.ColumnTolerance}))
	}

	return opts, nil
}
