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

var ErrJobNotFound = errors.New("job not found")

// JobRepository stores scrape job state.
type JobRepository struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, status, weeks, run_id, class_count, error, created_at, started_at, completed_at`

func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO scrape_jobs (id, status, weeks, created_at)
		VALUES ($1, $2, $3, $4)`,
		job.ID, job.Status, job.Weeks, job.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	row := r.db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scrape_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

// List returns the most recent jobs first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]*models.Job, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM scrape_jobs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return jobs, nil
}

func (r *JobRepository) MarkRunning(ctx context.Context, id string) error {
	return r.update(ctx, `
		UPDATE scrape_jobs SET status = $2, started_at = $3
		WHERE id = $1`, id, models.JobStatusRunning, time.Now())
}

func (r *JobRepository) MarkCompleted(ctx context.Context, id string, runID uuid.UUID, classes int) error {
	return r.update(ctx, `
		UPDATE scrape_jobs SET status = $2, run_id = $3, class_count = $4, completed_at = $5
		WHERE id = $1`, id, models.JobStatusCompleted, runID, classes, time.Now())
}

func (r *JobRepository) MarkFailed(ctx context.Context, id string, jobErr error) error {
	return r.update(ctx, `
		UPDATE scrape_jobs SET status = $2, error = $3, completed_at = $4
		WHERE id = $1`, id, models.JobStatusFailed, jobErr.Error(), time.Now())
}

func (r *JobRepository) update(ctx context.Context, query string, id string, args ...interface{}) error {
	result, err := r.db.pool.Exec(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	job := &models.Job{}
	err := row.Scan(
		&job.ID, &job.Status, &job.Weeks, &job.RunID, &job.ClassCount,
		&job.Error, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}
