package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// DefaultPath is used when no output path is given.
const DefaultPath = "classes.csv"

const (
	FormatCSV    = "csv"
	FormatICS    = "ics"
	FormatNDJSON = "json"
)

// FormatFor picks an output format from the file extension, defaulting to CSV.
func FormatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ics":
		return FormatICS
	case ".json", ".ndjson", ".jsonl":
		return FormatNDJSON
	default:
		return FormatCSV
	}
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatICS:
		return "text/calendar; charset=utf-8"
	case FormatNDJSON:
		return "application/x-ndjson"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Write renders entries in format.
func Write(w io.Writer, format string, entries []models.ClassEntry, loc *time.Location) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, entries)
	case FormatICS:
		return WriteICS(w, entries, loc)
	case FormatNDJSON:
		return WriteNDJSON(w, entries)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteFile writes entries to path through a temporary file and rename, so a
// failed export never leaves a truncated file behind. An empty format is
// inferred from the extension.
func WriteFile(path, format string, entries []models.ClassEntry, loc *time.Location) error {
	if path == "" {
		path = DefaultPath
	}
	if format == "" {
		format = FormatFor(path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriter(tmp)
	if err := Write(buf, format, entries, loc); err != nil {
		tmp.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
