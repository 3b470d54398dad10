package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEvent_Validate(t *testing.T) {
	valid := func() *OutboxEvent {
		return &OutboxEvent{
			AggregateType: "schedule_run",
			AggregateID:   uuid.NewString(),
			EventType:     "SCHEDULE_HARVESTED",
			Payload:       json.RawMessage(`{"class_count":1}`),
		}
	}

	require.NoError(t, valid().Validate())

	testCases := []struct {
		name   string
		modify func(*OutboxEvent)
	}{
		{"missing aggregate type", func(e *OutboxEvent) { e.AggregateType = "" }},
		{"missing aggregate id", func(e *OutboxEvent) { e.AggregateID = "" }},
		{"missing event type", func(e *OutboxEvent) { e.EventType = "" }},
		{"empty payload", func(e *OutboxEvent) { e.Payload = nil }},
		{"invalid payload", func(e *OutboxEvent) { e.Payload = json.RawMessage(`{"class_count":`) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event := valid()
			tc.modify(event)
			assert.Error(t, event.Validate())
		})
	}
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryBackoff(1))
	assert.Equal(t, 16*time.Second, retryBackoff(4))
	assert.Equal(t, 256*time.Second, retryBackoff(8))
	assert.Equal(t, 300*time.Second, retryBackoff(9))
	assert.Equal(t, 300*time.Second, retryBackoff(40))
}

func TestOutboxRepository_InsertWithTx(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOutboxRepository(db, "")

	t.Run("successful insert with transaction", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "schedule_run",
			AggregateID:   uuid.NewString(),
			EventType:     "SCHEDULE_HARVESTED",
			Payload:       json.RawMessage(`{"class_count":3}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.Equal(t, OutboxStatusPending, event.Status)
		assert.Equal(t, DefaultScheduleStream, event.TargetStream)
		assert.False(t, event.CreatedAt.IsZero())
	})

	t.Run("rollback on transaction failure", func(t *testing.T) {
		aggregateID := uuid.NewString()
		event := &OutboxEvent{
			AggregateType: "schedule_run",
			AggregateID:   aggregateID,
			EventType:     "SCHEDULE_HARVESTED",
			Payload:       json.RawMessage(`{}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			if err := repo.InsertWithTx(ctx, tx, event); err != nil {
				return err
			}
			return pgx.ErrTxClosed
		})
		assert.Error(t, err)

		events, err := repo.GetPending(ctx, 100)
		require.NoError(t, err)
		for _, e := range events {
			assert.NotEqual(t, aggregateID, e.AggregateID)
		}
	})
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOutboxRepository(db, "stream:test")
	event := &OutboxEvent{
		AggregateType: "schedule_run",
		AggregateID:   uuid.NewString(),
		EventType:     "SCHEDULE_HARVESTED",
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, db.Transaction(ctx, func(tx pgx.Tx) error {
		return repo.InsertWithTx(ctx, tx, event)
	}))

	require.NoError(t, repo.MarkFailed(ctx, event.ID, assert.AnError))

	var status string
	var retries int
	require.NoError(t, db.QueryRow(ctx,
		"SELECT status, retry_count FROM outbox_event WHERE id = $1", event.ID).Scan(&status, &retries))
	assert.Equal(t, OutboxStatusFailed, status)
	assert.Equal(t, 1, retries)

	require.NoError(t, repo.MarkProcessed(ctx, event.ID))
	assert.Error(t, repo.MarkProcessed(ctx, uuid.New()))
}

// setupTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// that need it are skipped when the variable is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)

	db := &DB{pool: pool}
	require.NoError(t, db.Migrate(ctx))
	return db
}
