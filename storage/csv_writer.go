package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"instagram-scraper/models"
)

// Sentinel strings rendered into CSV cells for degraded fields. They
// exist only at this boundary; the scraper itself deals in field
// statuses.
const (
	captionPlaceholder = "No content found"
	ocrFailureSentinel = "OCR processing failed"
)

// CSVWriter streams scraped posts to a CSV file, one row per
// (post, comment) pair. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"Post URL", "Post Content", "OCR Text", "Comment Username", "Comment Text",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WritePost writes one row per comment, or a single row with empty
// comment fields when the post has none. Rows are flushed immediately
// so a later failure cannot take back posts already processed.
func (c *CSVWriter) WritePost(post *models.Post) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	caption := renderCaption(post.Caption)
	ocrText := renderOCR(post.OCRText)

	if len(post.Comments) == 0 {
		if err := c.writer.Write([]string{post.URL, caption, ocrText, "", ""}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	} else {
		for _, comment := range post.Comments {
			row := []string{post.URL, caption, ocrText, comment.Username, comment.Text}
			if err := c.writer.Write(row); err != nil {
				return fmt.Errorf("csv: write row: %w", err)
			}
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func renderCaption(f models.Field) string {
	if f.Status == models.FieldOK {
		return f.Value
	}
	return captionPlaceholder
}

func renderOCR(f models.Field) string {
	switch f.Status {
	case models.FieldFailed:
		return ocrFailureSentinel
	case models.FieldMissing:
		return ""
	default:
		return f.Value
	}
}
