package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}

	assert.Equal(t, "02/28/2024", d.String())
	assert.Equal(t, "2024-02-28", d.ISO())
	assert.Equal(t, "02/29/2024", d.AddDays(1).String())
	assert.Equal(t, "03/01/2024", d.AddDays(2).String())
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.Before(d))

	parsed, err := ParseDate("02/28/2024")
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestClockTime_String(t *testing.T) {
	testCases := []struct {
		clock ClockTime
		want  string
	}{
		{ClockTime{Hour: 0, Minute: 5}, "12:05 AM"},
		{ClockTime{Hour: 9, Minute: 0}, "9:00 AM"},
		{ClockTime{Hour: 12, Minute: 30}, "12:30 PM"},
		{ClockTime{Hour: 23, Minute: 59}, "11:59 PM"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.clock.String())

			parsed, err := ParseClock(tc.want)
			require.NoError(t, err)
			assert.Equal(t, tc.clock, parsed)
		})
	}
}

func TestClassEntry_JSON(t *testing.T) {
	entry := ClassEntry{
		Name:        "CS101 (LEC)",
		Description: "Lecture",
		Location:    "Rice 130",
		Date:        Date{Year: 2024, Month: time.January, Day: 3},
		StartTime:   ClockTime{Hour: 10},
		EndTime:     ClockTime{Hour: 10, Minute: 50},
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "CS101 (LEC)",
		"description": "Lecture",
		"location": "Rice 130",
		"date": "2024-01-03",
		"start_time": "10:00 AM",
		"end_time": "10:50 AM"
	}`, string(data))

	var decoded ClassEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestRun_Span(t *testing.T) {
	run := NewRun(2)
	_, _, ok := run.Span()
	assert.False(t, ok)

	run.Entries = []ClassEntry{
		{Date: Date{Year: 2024, Month: time.January, Day: 10}},
		{Date: Date{Year: 2024, Month: time.January, Day: 2}},
		{Date: Date{Year: 2024, Month: time.January, Day: 5}},
	}
	first, last, ok := run.Span()
	require.True(t, ok)
	assert.Equal(t, "01/02/2024", first.String())
	assert.Equal(t, "01/10/2024", last.String())
}
