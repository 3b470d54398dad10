package events

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/sis-schedule-scraper/internal/export"
	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// EntrySource loads the classes of a stored run. Publisher implements it.
type EntrySource interface {
	Entries(ctx context.Context, runID uuid.UUID) ([]models.ClassEntry, error)
}

// CalendarWriter keeps an iCalendar feed in sync with harvested runs. Each
// run is written to <dir>/<run id>.ics and to <dir>/latest.ics.
type CalendarWriter struct {
	entries EntrySource
	dir     string
	loc     *time.Location
	logger  *slog.Logger
}

func NewCalendarWriter(entries EntrySource, dir string, loc *time.Location, logger *slog.Logger) *CalendarWriter {
	return &CalendarWriter{
		entries: entries,
		dir:     dir,
		loc:     loc,
		logger:  logger.With("component", "calendar_writer"),
	}
}

func (w *CalendarWriter) HandleScheduleHarvested(ctx context.Context, payload *ScheduleHarvestedPayload) error {
	runID, err := uuid.Parse(payload.RunID)
	if err != nil {
		return fmt.Errorf("invalid run_id %q: %w", payload.RunID, err)
	}

	entries, err := w.entries.Entries(ctx, runID)
	if err != nil {
		return err
	}

	for _, name := range []string{runID.String() + ".ics", "latest.ics"} {
		path := filepath.Join(w.dir, name)
		if err := export.WriteFile(path, export.FormatICS, entries, w.loc); err != nil {
			return err
		}
	}

	w.logger.Info("calendar updated", "run_id", runID, "classes", len(entries), "dir", w.dir)
	return nil
}
