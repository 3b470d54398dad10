package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// Accepted spellings of a clock time, tried in order after lowercasing.
var clockLayouts = []string{
	"3:04pm",
	"3:04 pm",
	"3pm",
	"3 pm",
	"15:04",
}

// ParseClockTime reads a 12-hour time such as "10:00am" or "1:30 PM".
func ParseClockTime(s string) (models.ClockTime, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	value = strings.NewReplacer("a.m.", "am", "p.m.", "pm").Replace(value)

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}

	return models.ClockTime{}, fmt.Errorf("%w: unparseable time %q", ErrMalformedCell, s)
}

// NormalizeClockTime rewrites a clock time as "h:mm AM/PM".
func NormalizeClockTime(s string) (string, error) {
	c, err := ParseClockTime(s)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

// ParseTimeRange splits "start - end" into its two clock times.
// The order of the two times is not checked.
func ParseTimeRange(s string) (start, end models.ClockTime, err error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return start, end, fmt.Errorf("%w: time range %q has no separator", ErrMalformedCell, s)
	}

	if start, err = ParseClockTime(from); err != nil {
		return start, end, err
	}
	if end, err = ParseClockTime(to); err != nil {
		return start, end, err
	}

	return start, end, nil
}
