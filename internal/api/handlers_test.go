package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/internal/jobs"
	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

type MockJobService struct {
	mock.Mock
}

func (m *MockJobService) CreateJob(ctx context.Context, weeks, priority int) (*models.Job, error) {
	args := m.Called(ctx, weeks, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}

func (m *MockJobService) ListJobs(ctx context.Context) ([]*models.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Job), args.Error(1)
}

func (m *MockJobService) Entries(ctx context.Context, id string) ([]models.ClassEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ClassEntry), args.Error(1)
}

type stubHealth struct {
	health database.RelayHealth
	err    error
}

func (s stubHealth) Health(context.Context) (database.RelayHealth, error) {
	return s.health, s.err
}

func newTestRouter(svc JobService, health HealthChecker) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandlers(svc, time.UTC, logger), health, nil)
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateJob(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockJobService)
		wantStatus int
	}{
		{
			name: "accepted",
			body: `{"weeks":3}`,
			setup: func(m *MockJobService) {
				m.On("CreateJob", mock.Anything, 3, 0).Return(&models.Job{ID: "job-1", Status: models.JobStatusPending, Weeks: 3}, nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name: "accepted with priority",
			body: `{"weeks":3,"priority":5}`,
			setup: func(m *MockJobService) {
				m.On("CreateJob", mock.Anything, 3, 5).Return(&models.Job{ID: "job-1", Status: models.JobStatusPending, Weeks: 3}, nil)
			},
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "malformed body",
			body:       `{"weeks":`,
			setup:      func(*MockJobService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid weeks",
			body: `{"weeks":0}`,
			setup: func(m *MockJobService) {
				m.On("CreateJob", mock.Anything, 0, 0).Return(nil, fmt.Errorf("%w: 0", jobs.ErrInvalidWeeks))
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "store failure",
			body: `{"weeks":1}`,
			setup: func(m *MockJobService) {
				m.On("CreateJob", mock.Anything, 1, 0).Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockJobService{}
			tt.setup(svc)

			rec := serve(newTestRouter(svc, nil), http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)

			if tt.wantStatus == http.StatusAccepted {
				var job models.Job
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
				assert.Equal(t, "job-1", job.ID)
				assert.Equal(t, 3, job.Weeks)
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "found", wantStatus: http.StatusOK},
		{name: "missing", err: fmt.Errorf("%w: x", database.ErrJobNotFound), wantStatus: http.StatusNotFound},
		{name: "backend error", err: errors.New("timeout"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockJobService{}
			if tt.err != nil {
				svc.On("GetJob", mock.Anything, "abc").Return(nil, tt.err)
			} else {
				svc.On("GetJob", mock.Anything, "abc").Return(&models.Job{ID: "abc", Status: models.JobStatusRunning}, nil)
			}

			rec := serve(newTestRouter(svc, nil), http.MethodGet, "/api/v1/jobs/abc", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestListJobs(t *testing.T) {
	svc := &MockJobService{}
	svc.On("ListJobs", mock.Anything).Return([]*models.Job{{ID: "a"}, {ID: "b"}}, nil)

	rec := serve(newTestRouter(svc, nil), http.MethodGet, "/api/v1/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestGetJobClasses(t *testing.T) {
	entries := []models.ClassEntry{{
		Name:        "MATH101",
		Description: "Calculus I",
		Location:    "Room 101",
		Date:        models.Date{Year: 2024, Month: time.January, Day: 8},
		StartTime:   models.ClockTime{Hour: 8},
		EndTime:     models.ClockTime{Hour: 9, Minute: 15},
	}}

	tests := []struct {
		name        string
		format      string
		err         error
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{name: "csv", format: "csv", wantStatus: http.StatusOK, wantType: "text/csv", wantContain: "MATH101"},
		{name: "ics", format: "ics", wantStatus: http.StatusOK, wantType: "text/calendar", wantContain: "BEGIN:VCALENDAR"},
		{name: "json", format: "json", wantStatus: http.StatusOK, wantType: "application/x-ndjson", wantContain: `"name":"MATH101"`},
		{name: "unknown format", format: "xml", wantStatus: http.StatusBadRequest},
		{name: "not finished", format: "csv", err: jobs.ErrJobNotReady, wantStatus: http.StatusConflict},
		{name: "missing job", format: "csv", err: database.ErrJobNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockJobService{}
			if tt.err != nil {
				svc.On("Entries", mock.Anything, "abc").Return(nil, tt.err)
			} else {
				svc.On("Entries", mock.Anything, "abc").Return(entries, nil)
			}

			rec := serve(newTestRouter(svc, nil), http.MethodGet, "/api/v1/jobs/abc/classes."+tt.format, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantType != "" {
				assert.Contains(t, rec.Header().Get("Content-Type"), tt.wantType)
				assert.Contains(t, rec.Body.String(), tt.wantContain)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantStatus int
		wantBody   string
	}{
		{name: "no checker", checker: nil, wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "ok", checker: stubHealth{health: database.RelayHealth{Status: "ok"}}, wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "warning", checker: stubHealth{health: database.RelayHealth{Status: "warning", Pending: 2000}}, wantStatus: http.StatusOK, wantBody: `"pending":2000`},
		{name: "dead letters", checker: stubHealth{health: database.RelayHealth{Status: "error", DeadLetter: 500}}, wantStatus: http.StatusServiceUnavailable, wantBody: `"status":"error"`},
		{name: "outbox down", checker: stubHealth{err: errors.New("conn refused")}, wantStatus: http.StatusServiceUnavailable, wantBody: "outbox unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestRouter(&MockJobService{}, tt.checker), http.MethodGet, "/health", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
