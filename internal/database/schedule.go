package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

var ErrRunNotFound = errors.New("schedule run not found")

// ScheduleRepository persists harvest runs and their class entries.
type ScheduleRepository struct {
	db *DB
}

func NewScheduleRepository(db *DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// SaveRunWithTx stores the run and its entries inside tx. Entry order is kept
// in the position column.
func (r *ScheduleRepository) SaveRunWithTx(ctx context.Context, tx pgx.Tx, run *models.Run) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO schedule_runs (id, weeks, class_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Weeks, len(run.Entries), run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert schedule run: %w", err)
	}

	if len(run.Entries) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(run.Entries))
	for i, e := range run.Entries {
		rows[i] = []interface{}{
			run.ID, i, e.Name, e.Description, e.Location,
			e.Date.In(time.UTC), e.StartTime.String(), e.EndTime.String(),
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"class_entries"},
		[]string{"run_id", "position", "name", "description", "location", "class_date", "start_time", "end_time"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert class entries: %w", err)
	}

	return nil
}

// GetRun loads a run with its entries.
func (r *ScheduleRepository) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	run := &models.Run{ID: id}
	err := r.db.pool.QueryRow(ctx, `
		SELECT weeks, started_at, finished_at
		FROM schedule_runs
		WHERE id = $1`, id).Scan(&run.Weeks, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule run: %w", err)
	}

	if run.Entries, err = r.ListEntries(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// ListEntries returns the entries of a run in extraction order.
func (r *ScheduleRepository) ListEntries(ctx context.Context, runID uuid.UUID) ([]models.ClassEntry, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT name, description, location, class_date, start_time, end_time
		FROM class_entries
		WHERE run_id = $1
		ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list class entries: %w", err)
	}
	defer rows.Close()

	entries := []models.ClassEntry{}
	for rows.Next() {
		var (
			e          models.ClassEntry
			day        time.Time
			start, end string
		)
		if err := rows.Scan(&e.Name, &e.Description, &e.Location, &day, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan class entry: %w", err)
		}
		if e, err = decodeEntry(e, day, start, end); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

func decodeEntry(e models.ClassEntry, day time.Time, start, end string) (models.ClassEntry, error) {
	var err error
	e.Date = models.DateOf(day)
	if e.StartTime, err = models.ParseClock(start); err != nil {
		return e, err
	}
	if e.EndTime, err = models.ParseClock(end); err != nil {
		return e, err
	}
	return e, nil
}
