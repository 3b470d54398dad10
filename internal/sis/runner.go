package sis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maltedev/sis-schedule-scraper/internal/browser"
	"github.com/maltedev/sis-schedule-scraper/internal/harvest"
	"github.com/maltedev/sis-schedule-scraper/internal/loadwait"
	"github.com/maltedev/sis-schedule-scraper/internal/models"
	"github.com/maltedev/sis-schedule-scraper/internal/ratelimit"
	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

type RunnerConfig struct {
	Selectors  Selectors
	NavRetries int
	// Credentials may be nil, in which case sign-on is left to the user.
	Credentials *Credentials
}

// Runner performs a complete signed-in harvest on a shared browser.
// Runs are serialized.
type Runner struct {
	mu        sync.Mutex
	browser   *browser.Browser
	cfg       RunnerConfig
	waiter    *loadwait.Waiter
	extractor *schedule.Extractor
	pacer     ratelimit.RateLimiter
	logger    *slog.Logger
}

func NewRunner(b *browser.Browser, cfg RunnerConfig, waiter *loadwait.Waiter, extractor *schedule.Extractor, pacer ratelimit.RateLimiter, logger *slog.Logger) *Runner {
	return &Runner{
		browser:   b,
		cfg:       cfg,
		waiter:    waiter,
		extractor: extractor,
		pacer:     pacer,
		logger:    logger.With("component", "sis-runner"),
	}
}

// Run signs in, opens the calendar and harvests the given number of weeks.
func (r *Runner) Run(ctx context.Context, weeks int) (*models.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	portal, err := NewPortal(r.browser, r.cfg.Selectors, r.waiter, r.cfg.NavRetries, r.logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := portal.Close(); err != nil {
			r.logger.Warn("failed to close page", "error", err)
		}
	}()

	if err := r.prepare(ctx, portal); err != nil {
		return nil, err
	}

	return harvest.New(portal, r.extractor, r.pacer, r.logger).Run(ctx, weeks)
}

func (r *Runner) prepare(ctx context.Context, portal *Portal) error {
	if err := portal.Open(ctx); err != nil {
		return err
	}
	if r.cfg.Credentials != nil {
		if err := portal.Login(ctx, *r.cfg.Credentials); err != nil {
			return fmt.Errorf("sign on: %w", err)
		}
	}
	if err := portal.AwaitAuthentication(ctx); err != nil {
		return err
	}
	if err := portal.OpenCalendar(ctx); err != nil {
		return err
	}
	return portal.ShowDetails(ctx)
}
