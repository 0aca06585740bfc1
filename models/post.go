package models

import (
	"strings"
	"time"
)

// FieldStatus marks whether a scraped field carries a real value, was
// absent from the page, or failed during extraction. Keeping the status
// separate from the value lets the CSV layer decide how each case is
// rendered instead of threading magic strings through the scraper.
type FieldStatus int

const (
	FieldOK FieldStatus = iota
	FieldMissing
	FieldFailed
)

// Field is a scraped value together with its extraction status.
type Field struct {
	Value  string
	Status FieldStatus
}

// OKField wraps a successfully extracted value.
func OKField(value string) Field {
	return Field{Value: value, Status: FieldOK}
}

// MissingField marks a field that was not present on the page.
func MissingField() Field {
	return Field{Status: FieldMissing}
}

// FailedField marks a field whose extraction raised an error.
func FailedField() Field {
	return Field{Status: FieldFailed}
}

// Comment is one comment row scraped from an open post dialog.
type Comment struct {
	Username string
	Text     string
}

// Post holds everything scraped from a single open post dialog.
// Posts are built fresh per loop iteration and discarded after being
// written out; there is no identity or cross-post relationship.
type Post struct {
	URL       string
	Caption   Field
	OCRText   Field
	Comments  []Comment
	ScrapedAt time.Time
}

// RowCount returns how many CSV rows this post contributes: one per
// comment, or a single empty-comment row when there are none.
func (p *Post) RowCount() int {
	if len(p.Comments) == 0 {
		return 1
	}
	return len(p.Comments)
}

// commentPlaceholder is the literal body Instagram renders for comments
// whose text could not be displayed.
const commentPlaceholder = "No text"

// FilterComments drops comments with empty or placeholder text,
// preserving the order of the rest.
func FilterComments(comments []Comment) []Comment {
	result := make([]Comment, 0, len(comments))
	for _, c := range comments {
		text := strings.TrimSpace(c.Text)
		if text == "" || text == commentPlaceholder {
			continue
		}
		result = append(result, c)
	}
	return result
}

// RunReport holds the computed summary over a finished scrape run.
type RunReport struct {
	Profile          string
	TotalPosts       int
	TotalComments    int
	TotalRows        int
	PostsWithOCRText int
	OCRFailures      int
	CaptionsMissing  int
	CommentsByUser   map[string]int
}
