package service

import (
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mailworker/mailworker/internal/domain"
)

// ArchiveConfig controls history archival during cleanup.
type ArchiveConfig struct {
	Enabled       bool
	Path          string
	Format        string // "json" or "csv"
	Compress      bool
	MaxFileSizeMB int
}

// archiveWriter appends history rows to date-named files under the
// archive path, rotating with a numeric suffix once a file exceeds the
// size cap.
type archiveWriter struct {
	config ArchiveConfig
}

func newArchiveWriter(config ArchiveConfig) *archiveWriter {
	if config.MaxFileSizeMB <= 0 {
		config.MaxFileSizeMB = 100
	}
	return &archiveWriter{config: config}
}

// WriteBatch appends rows to the archive file for date.
func (w *archiveWriter) WriteBatch(rows []*domain.EmailHistory, date time.Time) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(w.config.Path, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	path, isNew, err := w.currentFile(date)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	defer f.Close()

	var out io.Writer = f
	var gz *gzip.Writer
	if w.config.Compress {
		// Appended gzip members form a valid multi-member stream.
		gz = gzip.NewWriter(f)
		out = gz
	}

	switch w.config.Format {
	case "csv":
		err = writeCSV(out, rows, isNew)
	default:
		err = writeJSONLines(out, rows)
	}
	if err != nil {
		return err
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to flush archive: %w", err)
		}
	}
	return nil
}

// currentFile picks the newest file for the date that is still under the
// size cap, rotating to the next numeric suffix otherwise.
func (w *archiveWriter) currentFile(date time.Time) (string, bool, error) {
	base := "emailhistory-" + date.Format("2006-01-02")
	ext := "." + w.config.Format
	if w.config.Compress {
		ext += ".gz"
	}
	maxBytes := int64(w.config.MaxFileSizeMB) << 20

	for n := 0; ; n++ {
		name := base
		if n > 0 {
			name += "-" + strconv.Itoa(n)
		}
		path := filepath.Join(w.config.Path, name+ext)

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			return path, true, nil
		}
		if err != nil {
			return "", false, fmt.Errorf("failed to stat archive file: %w", err)
		}
		if info.Size() < maxBytes {
			return path, false, nil
		}
	}
}

func writeJSONLines(out io.Writer, rows []*domain.EmailHistory) error {
	enc := json.NewEncoder(out)
	for _, h := range rows {
		if err := enc.Encode(h); err != nil {
			return fmt.Errorf("failed to encode archive row: %w", err)
		}
	}
	return nil
}

func writeCSV(out io.Writer, rows []*domain.EmailHistory, withHeader bool) error {
	cw := csv.NewWriter(out)
	if withHeader {
		header := []string{
			"id", "queue_id", "to_emails", "subject", "status", "sent_at",
			"processing_time_ms", "retry_count", "attachment_count",
			"processed_by", "error_details", "created_at",
		}
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write archive header: %w", err)
		}
	}
	for _, h := range rows {
		sentAt := ""
		if h.SentAt != nil {
			sentAt = h.SentAt.Format(time.RFC3339)
		}
		errDetails := ""
		if h.ErrorDetails != nil {
			errDetails = *h.ErrorDetails
		}
		record := []string{
			h.ID, h.QueueID, h.ToEmails, h.Subject, h.Status.String(), sentAt,
			strconv.FormatInt(h.ProcessingTimeMs, 10),
			strconv.Itoa(h.RetryCount),
			strconv.Itoa(h.AttachmentCount),
			h.ProcessedBy, errDetails,
			h.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write archive row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
