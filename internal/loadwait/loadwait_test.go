package loadwait

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

type flagIndicator struct {
	hidden atomic.Bool
	checks atomic.Int32
}

func (f *flagIndicator) Visibility(ctx context.Context) (string, error) {
	f.checks.Add(1)
	if f.hidden.Load() {
		return Hidden, nil
	}
	return "visible", nil
}

func TestWaiter_Wait(t *testing.T) {
	const interval = 10 * time.Millisecond

	t.Run("resolves after indicator hides", func(t *testing.T) {
		ind := &flagIndicator{}
		time.AfterFunc(5*interval, func() { ind.hidden.Store(true) })

		var states []State
		w := NewWaiter(interval, nil)
		w.OnTick(func(s State) { states = append(states, s) })

		start := time.Now()
		err := w.Wait(context.Background(), ind)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, time.Since(start), 4*interval)
		require.NotEmpty(t, states)
		assert.Equal(t, Done, states[len(states)-1])
		for _, s := range states[:len(states)-1] {
			assert.Equal(t, Polling, s)
		}
	})

	t.Run("resolves within one interval of hiding", func(t *testing.T) {
		ind := &flagIndicator{}
		var (
			flippedAt    time.Time
			checksAtFlip int32
		)
		flipped := make(chan struct{})
		time.AfterFunc(35*time.Millisecond, func() {
			flippedAt = time.Now()
			ind.hidden.Store(true)
			checksAtFlip = ind.checks.Load()
			close(flipped)
		})

		require.NoError(t, NewWaiter(interval, nil).Wait(context.Background(), ind))
		returned := time.Now()
		<-flipped

		assert.LessOrEqual(t, ind.checks.Load()-checksAtFlip, int32(1))
		assert.Less(t, returned.Sub(flippedAt), interval+40*time.Millisecond)
	})

	t.Run("already hidden still waits one interval", func(t *testing.T) {
		ind := &flagIndicator{}
		ind.hidden.Store(true)

		start := time.Now()
		require.NoError(t, NewWaiter(interval, nil).Wait(context.Background(), ind))
		assert.GreaterOrEqual(t, time.Since(start), interval)
		assert.Equal(t, int32(1), ind.checks.Load())
	})

	t.Run("never resolves while visible", func(t *testing.T) {
		ind := &flagIndicator{}
		ctx, cancel := context.WithTimeout(context.Background(), 20*interval)
		defer cancel()

		err := NewWaiter(interval, nil).Wait(ctx, ind)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Greater(t, ind.checks.Load(), int32(1))
	})

	t.Run("missing indicator fails fast", func(t *testing.T) {
		ind := IndicatorFunc(func(ctx context.Context) (string, error) {
			return "", ErrIndicatorMissing
		})

		err := NewWaiter(interval, nil).Wait(context.Background(), ind)
		assert.ErrorIs(t, err, ErrIndicatorMissing)
		assert.ErrorIs(t, err, schedule.ErrMissingElement)
	})

	t.Run("indicator failure is returned", func(t *testing.T) {
		boom := errors.New("page crashed")
		ind := IndicatorFunc(func(ctx context.Context) (string, error) { return "", boom })

		err := NewWaiter(interval, nil).Wait(context.Background(), ind)
		assert.ErrorIs(t, err, boom)
	})
}

func TestNewWaiter_DefaultInterval(t *testing.T) {
	w := NewWaiter(0, nil)
	assert.Equal(t, DefaultInterval, w.interval)
}
