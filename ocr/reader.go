// Package ocr wraps Tesseract text recognition for post images.
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Reader recognizes text in raster images. It is configured once with a
// fixed language set and reused for every post in a run. Not safe for
// concurrent use; the scrape loop is strictly sequential.
type Reader struct {
	client *gosseract.Client
}

// NewReader creates a Reader recognizing Indonesian and English text.
func NewReader() (*Reader, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage("ind", "eng"); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ocr: set languages: %w", err)
	}
	return &Reader{client: client}, nil
}

// Read runs recognition over an encoded image (PNG/JPEG bytes) and
// returns the recognized fragments joined by single spaces, in
// detection order.
func (r *Reader) Read(img []byte) (string, error) {
	if len(img) == 0 {
		return "", fmt.Errorf("ocr: empty image buffer")
	}
	if err := r.client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("ocr: load image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}
	return NormalizeText(text), nil
}

// Close releases the underlying Tesseract client.
func (r *Reader) Close() error {
	return r.client.Close()
}

// NormalizeText collapses all whitespace runs (including newlines
// between recognized blocks) into single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
