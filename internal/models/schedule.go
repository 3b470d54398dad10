package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout    = "01/02/2006"
	isoDateLayout = "2006-01-02"
	clockLayout   = "3:04 PM"
)

// Date is a calendar day without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate reads a date in MM/DD/YYYY form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// In returns midnight of the day in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (d Date) Before(other Date) bool {
	return d.In(time.UTC).Before(other.In(time.UTC))
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// String renders the date as MM/DD/YYYY.
func (d Date) String() string {
	return d.In(time.UTC).Format(dateLayout)
}

func (d Date) ISO() string {
	return d.In(time.UTC).Format(isoDateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ISO())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = DateOf(t)
	return nil
}

// ClockTime is a wall clock time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

// String renders the time as "h:mm AM/PM".
func (c ClockTime) String() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format(clockLayout)
}

// On combines the clock time with a calendar day in loc.
func (c ClockTime) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseClock reads a time in "h:mm AM/PM" form.
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ClassEntry is one scheduled class meeting on the weekly calendar.
type ClassEntry struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        Date      `json:"date"`
	StartTime   ClockTime `json:"start_time"`
	EndTime     ClockTime `json:"end_time"`
}

func (e ClassEntry) Start(loc *time.Location) time.Time {
	return e.StartTime.On(e.Date, loc)
}

func (e ClassEntry) End(loc *time.Location) time.Time {
	return e.EndTime.On(e.Date, loc)
}

// Run is one harvest across consecutive weeks.
type Run struct {
	ID         uuid.UUID    `json:"id"`
	Weeks      int          `json:"weeks"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Entries    []ClassEntry `json:"entries"`
}

func NewRun(weeks int) *Run {
	return &Run{
		ID:        uuid.New(),
		Weeks:     weeks,
		StartedAt: time.Now(),
	}
}

// Span returns the first and last class dates in the run.
func (r *Run) Span() (first, last Date, ok bool) {
	for i, e := range r.Entries {
		if i == 0 || e.Date.Before(first) {
			first = e.Date
		}
		if i == 0 || last.Before(e.Date) {
			last = e.Date
		}
	}
	return first, last, len(r.Entries) > 0
}

// Job status values.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Job is a queued harvest request served by the API.
type Job struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Weeks       int        `json:"weeks"`
	RunID       *uuid.UUID `json:"run_id,omitempty"`
	ClassCount  int        `json:"class_count"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
