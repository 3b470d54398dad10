package sis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/sis-schedule-scraper/internal/browser"
	"github.com/maltedev/sis-schedule-scraper/internal/loadwait"
	"github.com/maltedev/sis-schedule-scraper/internal/schedule"
)

// authPollTimeout bounds each wait for the signed-in marker so that
// cancellation is observed while a user completes sign-on by hand.
const authPollTimeout = time.Second

// Portal drives one browser page through the SIS weekly calendar.
type Portal struct {
	browser    *browser.Browser
	page       playwright.Page
	sel        Selectors
	waiter     *loadwait.Waiter
	indicator  loadwait.Indicator
	navRetries int
	logger     *slog.Logger
}

func NewPortal(b *browser.Browser, sel Selectors, waiter *loadwait.Waiter, navRetries int, logger *slog.Logger) (*Portal, error) {
	page, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	browser.ForwardConsole(page, logger)

	return &Portal{
		browser:    b,
		page:       page,
		sel:        sel,
		waiter:     waiter,
		indicator:  NewPageIndicator(page, sel.LoadIndicator),
		navRetries: navRetries,
		logger:     logger.With("component", "portal"),
	}, nil
}

// Open loads the landing page and starts single sign-on.
func (p *Portal) Open(ctx context.Context) error {
	p.logger.Info("opening portal", "url", p.sel.LandingURL)
	if err := p.browser.NavigateWithRetry(ctx, p.page, p.sel.LandingURL, p.navRetries); err != nil {
		return fmt.Errorf("open landing page: %w", err)
	}
	if err := p.click(ctx, p.sel.SingleSignOn); err != nil {
		return err
	}
	return p.waitVisible(ctx, p.sel.LoginForm)
}

// Login fills the sign-on form.
func (p *Portal) Login(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Locator(p.sel.UserField).Fill(creds.User); err != nil {
		return fmt.Errorf("fill %s: %w", p.sel.UserField, err)
	}
	if err := p.page.Locator(p.sel.PassField).Fill(creds.Pass); err != nil {
		return fmt.Errorf("fill %s: %w", p.sel.PassField, err)
	}
	p.logger.Info("submitting credentials", "user", creds.User)
	return p.click(ctx, p.sel.SubmitButton)
}

// AwaitAuthentication blocks until the signed-in marker appears. It has no
// deadline of its own so a user can finish sign-on in a visible browser.
func (p *Portal) AwaitAuthentication(ctx context.Context) error {
	p.logger.Info("waiting for sign-on to complete")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := p.page.Locator(p.sel.Authenticated).WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(float64(authPollTimeout.Milliseconds())),
		})
		if err == nil {
			p.logger.Info("signed in")
			return nil
		}
		if !errors.Is(err, playwright.ErrTimeout) {
			return fmt.Errorf("wait for %s: %w", p.sel.Authenticated, err)
		}
	}
}

// OpenCalendar navigates to the weekly schedule.
func (p *Portal) OpenCalendar(ctx context.Context) error {
	if err := p.browser.NavigateWithRetry(ctx, p.page, p.sel.CalendarURL, p.navRetries); err != nil {
		return fmt.Errorf("open calendar: %w", err)
	}
	return p.waitVisible(ctx, p.sel.CalendarReady)
}

// ShowDetails enables instructor and title display and refreshes the calendar.
func (p *Portal) ShowDetails(ctx context.Context) error {
	for _, sel := range []string{p.sel.ShowInstructor, p.sel.ShowTitle} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.page.Locator(sel).Check(); err != nil {
			return fmt.Errorf("check %s: %w", sel, err)
		}
	}
	if err := p.click(ctx, p.sel.Refresh); err != nil {
		return err
	}
	return p.WaitForLoad(ctx)
}

// NextWeek advances the calendar by one week and waits for the reload.
func (p *Portal) NextWeek(ctx context.Context) error {
	if err := p.click(ctx, p.sel.NextWeek); err != nil {
		return err
	}
	return p.WaitForLoad(ctx)
}

// WaitForLoad blocks until the portal's busy overlay is hidden.
func (p *Portal) WaitForLoad(ctx context.Context) error {
	return p.waiter.Wait(ctx, p.indicator)
}

// Capture snapshots the calendar currently on screen.
func (p *Portal) Capture(ctx context.Context) (schedule.CalendarSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := p.page.Evaluate(snapshotScript, map[string]any{
		"weekStart": p.sel.WeekStart,
		"body":      p.sel.CalendarBody,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to capture calendar: %w", err)
	}
	return decodeSnapshot(raw, p.sel)
}

func (p *Portal) Close() error {
	return p.page.Close()
}

func (p *Portal) click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.page.Locator(selector).First().Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *Portal) waitVisible(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return nil
}
