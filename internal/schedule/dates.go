package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// WeekStart is the first day of a calendar week.
type WeekStart = models.Date

// Fallback layouts tried after the MM/DD/YYYY form the page normally shows.
var weekStartLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"Jan 2, 2006",
}

// ParseWeekStart reads the value of the week start field.
func ParseWeekStart(raw string) (WeekStart, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return WeekStart{}, fmt.Errorf("%w: empty value", ErrInvalidWeekStart)
	}

	if d, err := models.ParseDate(value); err == nil {
		return d, nil
	}

	for _, layout := range weekStartLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.DateOf(t), nil
		}
	}

	return WeekStart{}, fmt.Errorf("%w: %q", ErrInvalidWeekStart, raw)
}

// NormalizeWeekStart moves d back to the most recent first weekday.
// A date already on first is returned unchanged.
func NormalizeWeekStart(d WeekStart, first time.Weekday) WeekStart {
	back := (int(d.Weekday()) - int(first) + 7) % 7
	return d.AddDays(-back)
}
