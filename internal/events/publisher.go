package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

type EventType string

const (
	// EventTypeScheduleHarvested is published once a run has been stored.
	EventTypeScheduleHarvested EventType = "SCHEDULE_HARVESTED"

	aggregateScheduleRun = "schedule_run"
)

// ScheduleHarvestedPayload is the body of a SCHEDULE_HARVESTED event.
type ScheduleHarvestedPayload struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Weeks      int       `json:"weeks"`
	ClassCount int       `json:"class_count"`
	FirstDate  string    `json:"first_date,omitempty"`
	LastDate   string    `json:"last_date,omitempty"`
	Source     string    `json:"source"`
}

func NewScheduleHarvestedPayload(run *models.Run) *ScheduleHarvestedPayload {
	payload := &ScheduleHarvestedPayload{
		EventID:    uuid.New().String(),
		EventType:  string(EventTypeScheduleHarvested),
		Timestamp:  time.Now(),
		RunID:      run.ID.String(),
		Weeks:      run.Weeks,
		ClassCount: len(run.Entries),
		Source:     "sis-schedule-scraper",
	}
	if first, last, ok := run.Span(); ok {
		payload.FirstDate = first.ISO()
		payload.LastDate = last.ISO()
	}
	return payload
}

// OutboxEvent wraps the payload for the transactional outbox.
func (p *ScheduleHarvestedPayload) OutboxEvent() (*database.OutboxEvent, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &database.OutboxEvent{
		AggregateType: aggregateScheduleRun,
		AggregateID:   p.RunID,
		EventType:     p.EventType,
		Payload:       data,
	}, nil
}

// Publisher stores harvest runs and announces them through the outbox in
// the same transaction.
type Publisher struct {
	db        *database.DB
	outbox    *database.OutboxRepository
	schedules *database.ScheduleRepository
	logger    *slog.Logger
}

func NewPublisher(db *database.DB, outbox *database.OutboxRepository, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:        db,
		outbox:    outbox,
		schedules: database.NewScheduleRepository(db),
		logger:    logger.With("component", "event_publisher"),
	}
}

// PublishScheduleHarvested persists run and queues its SCHEDULE_HARVESTED event.
func (p *Publisher) PublishScheduleHarvested(ctx context.Context, run *models.Run) error {
	payload := NewScheduleHarvestedPayload(run)
	event, err := payload.OutboxEvent()
	if err != nil {
		return err
	}

	err = p.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := p.schedules.SaveRunWithTx(ctx, tx, run); err != nil {
			return err
		}
		return p.outbox.InsertWithTx(ctx, tx, event)
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"run_id", payload.RunID,
		"classes", payload.ClassCount,
		"outbox_id", event.ID,
	)

	return nil
}

// Save satisfies jobs.Results.
func (p *Publisher) Save(ctx context.Context, run *models.Run) error {
	return p.PublishScheduleHarvested(ctx, run)
}

// Entries returns the stored classes of a run.
func (p *Publisher) Entries(ctx context.Context, runID uuid.UUID) ([]models.ClassEntry, error) {
	return p.schedules.ListEntries(ctx, runID)
}
