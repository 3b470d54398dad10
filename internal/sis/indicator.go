package sis

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/sis-schedule-scraper/internal/loadwait"
)

const visibilityScript = `(sel) => {
	const el = document.querySelector(sel);
	return el ? el.style.visibility : null;
}`

// PageIndicator reads the inline visibility of the portal's busy overlay.
type PageIndicator struct {
	page     playwright.Page
	selector string
}

func NewPageIndicator(page playwright.Page, selector string) *PageIndicator {
	return &PageIndicator{page: page, selector: selector}
}

func (p *PageIndicator) Visibility(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	v, err := p.page.Evaluate(visibilityScript, p.selector)
	if err != nil {
		return "", fmt.Errorf("failed to read %s visibility: %w", p.selector, err)
	}
	return visibilityValue(v, p.selector)
}

func visibilityValue(v any, selector string) (string, error) {
	if v == nil {
		return "", fmt.Errorf("%w: %s", loadwait.ErrIndicatorMissing, selector)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected visibility value %T for %s", v, selector)
	}
	return s, nil
}
