package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// WriteNDJSON writes one JSON object per line.
func WriteNDJSON(w io.Writer, entries []models.ClassEntry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode class: %w", err)
		}
	}
	return nil
}
