package storage

import "instagram-scraper/models"

// RowWriter is the interface the extraction loop writes posts through.
type RowWriter interface {
	WritePost(post *models.Post) error
	Close() error
}

// PostWriter is the interface for persisting whole posts to a database.
type PostWriter interface {
	Write(posts []*models.Post) error
	Close() error
}
