package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/maltedev/sis-schedule-scraper/internal/queue"
)

// StartWorker runs queued jobs one at a time until ctx ends or the queue
// is closed.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrQueueClosed) && !errors.Is(err, context.Canceled) {
				m.logger.Error("failed to pop job", "error", err)
			}
			m.logger.Info("job worker stopping")
			return
		}

		m.processJob(ctx, task)
	}
}

func (m *Manager) processJob(ctx context.Context, task *queue.Task) {
	m.logger.Info("processing job", "id", task.JobID, "weeks", task.Weeks)

	if err := m.store.MarkRunning(ctx, task.JobID); err != nil {
		m.logger.Error("failed to update job status", "id", task.JobID, "error", err)
		return
	}

	classes, err := m.harvest(ctx, task)
	if err != nil {
		m.logger.Error("job failed", "id", task.JobID, "error", err)
		// The job context may be gone; record the failure regardless.
		if markErr := m.store.MarkFailed(context.WithoutCancel(ctx), task.JobID, err); markErr != nil {
			m.logger.Error("failed to mark job as failed", "id", task.JobID, "error", markErr)
		}
		return
	}

	m.logger.Info("job completed", "id", task.JobID, "classes", classes)
}

func (m *Manager) harvest(ctx context.Context, task *queue.Task) (int, error) {
	run, err := m.runner.Run(ctx, task.Weeks)
	if err != nil {
		return 0, err
	}
	if err := m.results.Save(ctx, run); err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	if err := m.store.MarkCompleted(ctx, task.JobID, run.ID, len(run.Entries)); err != nil {
		return 0, fmt.Errorf("failed to mark job as completed: %w", err)
	}
	return len(run.Entries), nil
}
