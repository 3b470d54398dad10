// Package harvest walks the weekly calendar forward and collects classes.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
	"github.com/maltedev/sis-schedule-scraper/internal/ratelimit"
	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

var ErrInvalidWeeks = errors.New("weeks must be at least 1")

// Calendar is a navigable weekly calendar.
type Calendar interface {
	// Capture returns the week currently shown.
	Capture(ctx context.Context) (schedule.CalendarSource, error)
	// NextWeek advances to the following week and waits for it to render.
	NextWeek(ctx context.Context) error
}

type Harvester struct {
	calendar  Calendar
	extractor *schedule.Extractor
	pacer     ratelimit.RateLimiter
	logger    *slog.Logger
}

// New returns a Harvester. pacer may be nil.
func New(calendar Calendar, extractor *schedule.Extractor, pacer ratelimit.RateLimiter, logger *slog.Logger) *Harvester {
	return &Harvester{
		calendar:  calendar,
		extractor: extractor,
		pacer:     pacer,
		logger:    logger.With("component", "harvester"),
	}
}

// Run extracts the current week and the weeks-1 weeks after it. Entries are
// returned in week order. Any failure aborts the run.
func (h *Harvester) Run(ctx context.Context, weeks int) (*models.Run, error) {
	if weeks < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWeeks, weeks)
	}

	run := models.NewRun(weeks)
	for week := 1; week <= weeks; week++ {
		if week > 1 {
			if err := h.advance(ctx); err != nil {
				return nil, fmt.Errorf("week %d: %w", week, err)
			}
		}

		src, err := h.calendar.Capture(ctx)
		if err != nil {
			h.feedback(err)
			return nil, fmt.Errorf("week %d: %w", week, err)
		}
		entries, err := h.extractor.Extract(ctx, src)
		if err != nil {
			h.feedback(err)
			return nil, fmt.Errorf("week %d: %w", week, err)
		}
		h.feedback(nil)

		h.logger.Info("scraped week", "week", week, "of", weeks, "classes", len(entries))
		run.Entries = append(run.Entries, entries...)
	}

	run.FinishedAt = time.Now()
	h.logger.Info("harvest complete",
		"run_id", run.ID,
		"weeks", weeks,
		"classes", len(run.Entries),
		"duration", run.FinishedAt.Sub(run.StartedAt))

	return run, nil
}

func (h *Harvester) advance(ctx context.Context) error {
	if h.pacer != nil {
		if err := h.pacer.Wait(ctx); err != nil {
			return err
		}
	}
	if err := h.calendar.NextWeek(ctx); err != nil {
		h.feedback(err)
		return fmt.Errorf("advance calendar: %w", err)
	}
	return nil
}

func (h *Harvester) feedback(err error) {
	fb, ok := h.pacer.(ratelimit.Feedback)
	if !ok {
		return
	}
	if err != nil {
		fb.RecordError()
		return
	}
	fb.RecordSuccess()
}
