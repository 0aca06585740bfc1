package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"instagram-scraper/models"
)

// PostgresWriter persists scraped posts and their comments to PostgreSQL.
// It mirrors the CSV output and is only wired up when the operator
// enables it in configuration.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         SERIAL PRIMARY KEY,
			url        TEXT        UNIQUE NOT NULL,
			caption    TEXT        NOT NULL DEFAULT '',
			ocr_text   TEXT        NOT NULL DEFAULT '',
			ocr_status VARCHAR(16) NOT NULL DEFAULT 'ok',
			scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS comments (
			id       SERIAL PRIMARY KEY,
			post_id  INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			username TEXT    NOT NULL DEFAULT '',
			body     TEXT    NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_comments_post_id  ON comments(post_id);
		CREATE INDEX IF NOT EXISTS idx_comments_username ON comments(username);
	`)
	return err
}

// Clear deletes all stored posts (comments cascade).
func (pw *PostgresWriter) Clear() error {
	_, err := pw.db.Exec("DELETE FROM posts")
	if err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}
	return nil
}

// Write inserts all posts and their comments, clearing old data first.
// Each post and its comments go in a single transaction.
func (pw *PostgresWriter) Write(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	if err := pw.Clear(); err != nil {
		return err
	}

	for _, post := range posts {
		if err := pw.insertPost(post); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertPost(post *models.Post) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	var postID int64
	err = tx.QueryRow(`
		INSERT INTO posts (url, caption, ocr_text, ocr_status, scraped_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url) DO UPDATE SET
			caption = EXCLUDED.caption,
			ocr_text = EXCLUDED.ocr_text,
			ocr_status = EXCLUDED.ocr_status,
			scraped_at = EXCLUDED.scraped_at
		RETURNING id
	`, post.URL, post.Caption.Value, post.OCRText.Value,
		statusLabel(post.OCRText.Status), post.ScrapedAt).Scan(&postID)
	if err != nil {
		return fmt.Errorf("postgres: insert post %s: %w", post.URL, err)
	}

	for _, comment := range post.Comments {
		if _, err := tx.Exec(`
			INSERT INTO comments (post_id, username, body) VALUES ($1, $2, $3)
		`, postID, comment.Username, comment.Text); err != nil {
			return fmt.Errorf("postgres: insert comment: %w", err)
		}
	}

	return tx.Commit()
}

func statusLabel(s models.FieldStatus) string {
	switch s {
	case models.FieldMissing:
		return "missing"
	case models.FieldFailed:
		return "failed"
	default:
		return "ok"
	}
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
