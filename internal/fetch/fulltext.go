package fetch

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/go-shiori/go-readability"
)

// DefaultMinRunes is the body length below which we go fetch the article page.
const DefaultMinRunes = 400

// Readability fills in article bodies for entries whose feed only carries a
// teaser. It never fails: on any error the entry comes back unchanged.
type Readability struct {
	MinRunes int
	Timeout  time.Duration

	// fromURL is readability.FromURL; swapped in tests.
	fromURL func(pageURL string, timeout time.Duration) (readability.Article, error)
}

// NewReadability creates an expander with the given per-page timeout.
func NewReadability(timeout time.Duration) *Readability {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Readability{
		MinRunes: DefaultMinRunes,
		Timeout:  timeout,
		fromURL: func(pageURL string, timeout time.Duration) (readability.Article, error) {
			return readability.FromURL(pageURL, timeout)
		},
	}
}

// Expand returns a copy of e with Content set to the extracted page text
// when the feed body is too short to analyze.
func (r *Readability) Expand(ctx context.Context, e feeds.Entry) feeds.Entry {
	if utf8.RuneCountInString(e.Text()) >= r.MinRunes || e.Link == "" {
		return e
	}
	if ctx.Err() != nil {
		return e
	}

	article, err := r.fromURL(e.Link, r.Timeout)
	if err != nil {
		logging.Debug("readability failed", "url", e.Link, "error", err)
		return e
	}

	text := PlainText(article.TextContent)
	if utf8.RuneCountInString(text) <= utf8.RuneCountInString(e.Text()) {
		return e
	}

	logging.Debug("readability expanded entry", "url", e.Link, "runes", utf8.RuneCountInString(text))
	e.Content = text
	return e
}
