// Package loadwait blocks until the portal's busy indicator reports that a
// server round-trip has finished.
package loadwait

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

const (
	// DefaultInterval is the delay between visibility checks.
	DefaultInterval = 300 * time.Millisecond

	// Hidden is the visibility value that marks the page as settled.
	Hidden = "hidden"
)

// ErrIndicatorMissing is returned by indicators whose element is absent.
var ErrIndicatorMissing = fmt.Errorf("load indicator: %w", schedule.ErrMissingElement)

// Indicator reports the inline visibility style of the busy element.
type Indicator interface {
	Visibility(ctx context.Context) (string, error)
}

// IndicatorFunc adapts a function to Indicator.
type IndicatorFunc func(ctx context.Context) (string, error)

func (f IndicatorFunc) Visibility(ctx context.Context) (string, error) {
	return f(ctx)
}

type State int

const (
	Polling State = iota
	Done
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Waiter polls an Indicator at a fixed interval. It imposes no deadline of
// its own; callers bound the wait through the context.
type Waiter struct {
	interval time.Duration
	logger   *slog.Logger
	onTick   func(State)
}

func NewWaiter(interval time.Duration, logger *slog.Logger) *Waiter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Waiter{
		interval: interval,
		logger:   logger.With("component", "loadwait"),
	}
}

// OnTick registers fn to observe the state after every check.
func (w *Waiter) OnTick(fn func(State)) {
	w.onTick = fn
}

// Wait returns once the indicator reads Hidden. The first check happens one
// interval after the call.
func (w *Waiter) Wait(ctx context.Context, ind Indicator) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	started := time.Now()
	checks := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		checks++
		visibility, err := ind.Visibility(ctx)
		if err != nil {
			return fmt.Errorf("check load indicator: %w", err)
		}

		if visibility == Hidden {
			w.notify(Done)
			w.logger.Debug("page settled", "checks", checks, "elapsed", time.Since(started))
			return nil
		}
		w.notify(Polling)
	}
}

func (w *Waiter) notify(s State) {
	if w.onTick != nil {
		w.onTick(s)
	}
}
