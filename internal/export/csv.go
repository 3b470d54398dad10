package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// CSVHeader is the column layout calendar importers expect.
var CSVHeader = []string{"Subject", "Start Date", "Start Time", "End Date", "End Time", "Description", "Location"}

// WriteCSV writes one row per class after the header row.
func WriteCSV(w io.Writer, entries []models.ClassEntry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.Name,
			e.Date.String(),
			e.StartTime.String(),
			e.Date.String(),
			e.EndTime.String(),
			e.Description,
			e.Location,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
