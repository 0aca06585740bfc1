package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"instagram-scraper/models"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return rows
}

func TestCSVWriterHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(rows))
	}
	want := []string{"Post URL", "Post Content", "OCR Text", "Comment Username", "Comment Text"}
	for i, cell := range want {
		if rows[0][i] != cell {
			t.Errorf("header[%d]: got %q, want %q", i, rows[0][i], cell)
		}
	}
}

func TestCSVWriterOneRowPerComment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	defer w.Close()

	post := &models.Post{
		URL:     "https://www.instagram.com/p/abc/",
		Caption: models.OKField("beach day"),
		OCRText: models.OKField("SALE 50%"),
		Comments: []models.Comment{
			{Username: "alice", Text: "wow"},
			{Username: "bob", Text: "mantap"},
		},
		ScrapedAt: time.Now(),
	}
	if err := w.WritePost(post); err != nil {
		t.Fatalf("WritePost: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][3] != "alice" || rows[2][3] != "bob" {
		t.Errorf("comment order not preserved: %v", rows[1:])
	}
	for _, row := range rows[1:] {
		if row[0] != post.URL || row[1] != "beach day" || row[2] != "SALE 50%" {
			t.Errorf("post fields not repeated per comment row: %v", row)
		}
	}
}

func TestCSVWriterEmptyCommentRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	defer w.Close()

	post := &models.Post{
		URL:     "https://www.instagram.com/p/def/",
		Caption: models.OKField("quiet post"),
		OCRText: models.MissingField(),
	}
	if err := w.WritePost(post); err != nil {
		t.Fatalf("WritePost: %v", err)
	}

	rows := readRows(t, path)
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][3] != "" || rows[1][4] != "" {
		t.Errorf("comment fields should be empty: %v", rows[1])
	}
	if rows[1][2] != "" {
		t.Errorf("missing OCR should render empty, got %q", rows[1][2])
	}
}

func TestCSVWriterDegradedFieldSentinels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	defer w.Close()

	post := &models.Post{
		URL:     "https://www.instagram.com/p/ghi/",
		Caption: models.MissingField(),
		OCRText: models.FailedField(),
	}
	if err := w.WritePost(post); err != nil {
		t.Fatalf("WritePost: %v", err)
	}

	rows := readRows(t, path)
	if rows[1][1] != "No content found" {
		t.Errorf("missing caption: got %q, want %q", rows[1][1], "No content found")
	}
	if rows[1][2] != "OCR processing failed" {
		t.Errorf("failed OCR: got %q, want %q", rows[1][2], "OCR processing failed")
	}
}

func TestCSVWriterTruncatesPreviousRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	post := &models.Post{URL: "https://www.instagram.com/p/old/", Caption: models.OKField("old")}
	if err := w.WritePost(post); err != nil {
		t.Fatalf("WritePost: %v", err)
	}
	w.Close()

	w2, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter second run: %v", err)
	}
	w2.Close()

	rows := readRows(t, path)
	if len(rows) != 1 {
		t.Errorf("second run should truncate to header only, got %d rows", len(rows))
	}
}
