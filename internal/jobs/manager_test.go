package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
	"github.com/maltedev/sis-schedule-scraper/internal/queue"
)

type memoryStore struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newMemoryStore() *memoryStore {
	return &memoryStore{jobs: map[string]*models.Job{}}
}

func (s *memoryStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryStore) Get(_ context.Context, id string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	copied := *job
	return &copied, nil
}

func (s *memoryStore) List(_ context.Context, limit int) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, job := range s.jobs {
		copied := *job
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryStore) MarkRunning(_ context.Context, id string) error {
	return s.set(id, func(j *models.Job) { j.Status = models.JobStatusRunning })
}

func (s *memoryStore) MarkCompleted(_ context.Context, id string, runID uuid.UUID, classes int) error {
	return s.set(id, func(j *models.Job) {
		j.Status = models.JobStatusCompleted
		j.RunID = &runID
		j.ClassCount = classes
	})
}

func (s *memoryStore) MarkFailed(_ context.Context, id string, jobErr error) error {
	return s.set(id, func(j *models.Job) {
		msg := jobErr.Error()
		j.Status = models.JobStatusFailed
		j.Error = &msg
	})
}

func (s *memoryStore) set(id string, fn func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return errors.New("job not found")
	}
	fn(job)
	return nil
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, weeks int) (*models.Run, error) {
	args := m.Called(ctx, weeks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Run), args.Error(1)
}

type MockResults struct {
	mock.Mock
}

func (m *MockResults) Save(ctx context.Context, run *models.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockResults) Entries(ctx context.Context, runID uuid.UUID) ([]models.ClassEntry, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClassEntry), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRun() *models.Run {
	run := models.NewRun(1)
	run.Entries = []models.ClassEntry{{
		Name:      "MATH101",
		Date:      models.Date{Year: 2024, Month: time.January, Day: 8},
		StartTime: models.ClockTime{Hour: 8},
		EndTime:   models.ClockTime{Hour: 9, Minute: 15},
	}}
	return run
}

func waitForStatus(t *testing.T, store *memoryStore, id, status string) *models.Job {
	t.Helper()
	var job *models.Job
	require.Eventually(t, func() bool {
		var err error
		job, err = store.Get(context.Background(), id)
		return err == nil && job.Status == status
	}, time.Second, 5*time.Millisecond)
	return job
}

func TestManager_CreateJob(t *testing.T) {
	tests := []struct {
		name    string
		weeks   int
		wantErr error
	}{
		{name: "one week", weeks: 1},
		{name: "several weeks", weeks: 4},
		{name: "zero weeks", weeks: 0, wantErr: ErrInvalidWeeks},
		{name: "negative weeks", weeks: -2, wantErr: ErrInvalidWeeks},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			q := queue.NewInMemoryQueue(0)
			m := NewManager(store, q, &MockRunner{}, &MockResults{}, testLogger())

			job, err := m.CreateJob(context.Background(), tt.weeks, 0)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, q.Size())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.JobStatusPending, job.Status)
			assert.Equal(t, tt.weeks, job.Weeks)
			assert.Equal(t, 1, q.Size())

			stored, err := m.GetJob(context.Background(), job.ID)
			require.NoError(t, err)
			assert.Equal(t, job.ID, stored.ID)
		})
	}
}

func TestManager_CreateJobQueueClosed(t *testing.T) {
	store := newMemoryStore()
	q := queue.NewInMemoryQueue(0)
	require.NoError(t, q.Close())
	m := NewManager(store, q, &MockRunner{}, &MockResults{}, testLogger())

	_, err := m.CreateJob(context.Background(), 1, 0)
	assert.ErrorIs(t, err, queue.ErrQueueClosed)

	jobs, err := m.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusFailed, jobs[0].Status)
}

func TestManager_CreateJobPriority(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(0)
	m := NewManager(newMemoryStore(), q, &MockRunner{}, &MockResults{}, testLogger())

	low, err := m.CreateJob(ctx, 1, 0)
	require.NoError(t, err)
	high, err := m.CreateJob(ctx, 2, 10)
	require.NoError(t, err)

	task, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, high.ID, task.JobID)
	assert.Equal(t, 10, task.Priority)
	assert.Equal(t, 2, task.Weeks)

	task, err = q.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, low.ID, task.JobID)
}

func TestManager_WorkerCompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newMemoryStore()
	q := queue.NewInMemoryQueue(0)
	run := sampleRun()

	runner := &MockRunner{}
	runner.On("Run", mock.Anything, 2).Return(run, nil)
	results := &MockResults{}
	results.On("Save", mock.Anything, run).Return(nil)
	results.On("Entries", mock.Anything, run.ID).Return(run.Entries, nil)

	m := NewManager(store, q, runner, results, testLogger())
	go m.StartWorker(ctx)

	job, err := m.CreateJob(ctx, 2, 0)
	require.NoError(t, err)

	done := waitForStatus(t, store, job.ID, models.JobStatusCompleted)
	require.NotNil(t, done.RunID)
	assert.Equal(t, run.ID, *done.RunID)
	assert.Equal(t, 1, done.ClassCount)

	entries, err := m.Entries(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Entries, entries)

	runner.AssertExpectations(t)
	results.AssertExpectations(t)
}

func TestManager_WorkerRecordsFailure(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockRunner, *MockResults)
		wantErr string
	}{
		{
			name: "harvest fails",
			setup: func(r *MockRunner, _ *MockResults) {
				r.On("Run", mock.Anything, 1).Return(nil, errors.New("week 0: missing element"))
			},
			wantErr: "week 0: missing element",
		},
		{
			name: "save fails",
			setup: func(r *MockRunner, res *MockResults) {
				r.On("Run", mock.Anything, 1).Return(sampleRun(), nil)
				res.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
			},
			wantErr: "failed to save run: db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			store := newMemoryStore()
			q := queue.NewInMemoryQueue(0)
			runner := &MockRunner{}
			results := &MockResults{}
			tt.setup(runner, results)

			m := NewManager(store, q, runner, results, testLogger())
			go m.StartWorker(ctx)

			job, err := m.CreateJob(ctx, 1, 0)
			require.NoError(t, err)

			failed := waitForStatus(t, store, job.ID, models.JobStatusFailed)
			require.NotNil(t, failed.Error)
			assert.Equal(t, tt.wantErr, *failed.Error)

			_, err = m.Entries(ctx, job.ID)
			assert.ErrorIs(t, err, ErrJobNotReady)
		})
	}
}

func TestManager_WorkerStopsOnClose(t *testing.T) {
	q := queue.NewInMemoryQueue(0)
	m := NewManager(newMemoryStore(), q, &MockRunner{}, &MockResults{}, testLogger())

	stopped := make(chan struct{})
	go func() {
		m.StartWorker(context.Background())
		close(stopped)
	}()

	require.NoError(t, q.Close())
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}
