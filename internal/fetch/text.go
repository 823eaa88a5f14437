package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from a feed field and collapses whitespace.
// Feeds routinely put HTML (and entity-escaped HTML) in descriptions.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
