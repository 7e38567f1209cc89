// Package fetch retrieves the text behind cited source URLs.
//
// Every Fetcher returns either a Document with non-empty text or a
// *model.FetchError describing why the source is unusable. Context
// cancellation is reported as the context's own error so callers can
// tell "this source failed" apart from "the run was abandoned".
package fetch

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/truthlayer/internal/model"
)

// Fetcher retrieves one source document
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Document, error)
}

// Document is the readable content behind a URL
type Document struct {
	URL         string `json:"url"`
	FinalURL    string `json:"final_url,omitempty"` // After redirects
	Title       string `json:"title,omitempty"`
	Text        string `json:"text"`
	ContentType string `json:"content_type,omitempty"`
	Attempts    int    `json:"-"`
}

// AsFetchError extracts a *model.FetchError from err
func AsFetchError(err error) (*model.FetchError, bool) {
	var fe *model.FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var (
	// Same cleanup as applied to scraped markdown: long whitespace runs become a paragraph break
	longWhitespace = regexp.MustCompile(`\s{3,}`)
	inlineSpace    = regexp.MustCompile(`[ \t\f\v\r]+`)
)

// CleanText collapses whitespace while keeping paragraph breaks
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = longWhitespace.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Truncate caps text at max bytes without splitting a rune (max <= 0 means no cap)
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
