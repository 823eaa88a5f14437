package feeds

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Entry is a single article from a syndication feed.
// Entries are immutable once fetched; stages downstream only read them.
type Entry struct {
	ID          string // canonical link, or GUID when the feed has no link
	Title       string
	Summary     string // plain text, HTML already stripped
	Content     string // full text when available
	Link        string
	Source      string // feed display name, e.g. "Yonhap Politics"
	Category    string
	PublishedAt time.Time
}

// Key returns a short stable identifier derived from ID, safe for URLs.
func (e Entry) Key() string {
	return KeyFor(e.ID)
}

// Text returns the best available article body.
func (e Entry) Text() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Summary
}

// KeyFor hashes an entry ID the same way Entry.Key does.
func KeyFor(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])[:16]
}

// Feed is one syndication URL.
type Feed struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Category groups the feeds shown under one topic tab.
type Category struct {
	Name  string `yaml:"name" json:"name"`
	Feeds []Feed `yaml:"feeds" json:"feeds"`
}
