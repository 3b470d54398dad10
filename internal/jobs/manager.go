package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
	"github.com/maltedev/sis-schedule-scraper/internal/queue"
)

const defaultListLimit = 100

var (
	ErrInvalidWeeks = errors.New("weeks must be positive")
	ErrJobNotReady  = errors.New("job has no results yet")
)

// Store persists job state. database.JobRepository implements it.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, limit int) ([]*models.Job, error)
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, runID uuid.UUID, classes int) error
	MarkFailed(ctx context.Context, id string, jobErr error) error
}

// Runner harvests a number of weeks. sis.Runner implements it.
type Runner interface {
	Run(ctx context.Context, weeks int) (*models.Run, error)
}

// Results stores finished runs. events.Publisher implements it.
type Results interface {
	Save(ctx context.Context, run *models.Run) error
	Entries(ctx context.Context, runID uuid.UUID) ([]models.ClassEntry, error)
}

type Manager struct {
	store   Store
	queue   queue.Queue
	runner  Runner
	results Results
	logger  *slog.Logger
}

func NewManager(store Store, q queue.Queue, runner Runner, results Results, logger *slog.Logger) *Manager {
	return &Manager{
		store:   store,
		queue:   q,
		runner:  runner,
		results: results,
		logger:  logger.With("component", "job_manager"),
	}
}

// CreateJob records a pending job and queues it for the worker.
// Pending jobs are picked by descending priority, then by age.
func (m *Manager) CreateJob(ctx context.Context, weeks, priority int) (*models.Job, error) {
	if weeks < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWeeks, weeks)
	}

	job := &models.Job{
		ID:        uuid.New().String(),
		Status:    models.JobStatusPending,
		Weeks:     weeks,
		CreatedAt: time.Now(),
	}
	if err := m.store.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := m.queue.Push(&queue.Task{JobID: job.ID, Weeks: weeks, Priority: priority, CreatedAt: job.CreatedAt}); err != nil {
		if markErr := m.store.MarkFailed(ctx, job.ID, err); markErr != nil {
			m.logger.Error("failed to mark job as failed", "id", job.ID, "error", markErr)
		}
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "weeks", weeks, "priority", priority)
	return job, nil
}

func (m *Manager) GetJob(ctx context.Context, id string) (*models.Job, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) ListJobs(ctx context.Context) ([]*models.Job, error) {
	return m.store.List(ctx, defaultListLimit)
}

// Entries returns the classes harvested by a completed job.
func (m *Manager) Entries(ctx context.Context, id string) ([]models.ClassEntry, error) {
	job, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.RunID == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobNotReady, id, job.Status)
	}
	return m.results.Entries(ctx, *job.RunID)
}
