package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

const productID = "-//maltedev//sis-schedule-scraper//EN"

// uidNamespace scopes event UIDs so re-exports of the same class keep them.
var uidNamespace = uuid.MustParse("6f1c2d8e-4b7a-4e52-9d0c-3a5f8b1e7c42")

// WriteICS writes the entries as an iCalendar feed. Class times are
// interpreted in loc.
func WriteICS(w io.Writer, entries []models.ClassEntry, loc *time.Location) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)

	stamp := time.Now().UTC()
	for _, e := range entries {
		event := cal.AddEvent(EventUID(e))
		event.SetDtStampTime(stamp)
		event.SetStartAt(e.Start(loc))
		event.SetEndAt(e.End(loc))
		event.SetSummary(e.Name)
		event.SetDescription(e.Description)
		event.SetLocation(e.Location)
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	return nil
}

// EventUID derives a stable identifier from the class name, day and start.
func EventUID(e models.ClassEntry) string {
	key := e.Name + "|" + e.Date.ISO() + "|" + e.StartTime.String()
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@sis-schedule-scraper"
}
