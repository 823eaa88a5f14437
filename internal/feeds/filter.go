package feeds

import (
	"regexp"
	"strings"
)

// Filter drops advertorial and promo entries before they reach a list.
//
// Words like "sponsored" or 광고 also appear in real reporting, so they only
// count as markers when bracketed or leading a title or summary.
type Filter struct {
	BlockURLPatterns    []*regexp.Regexp
	BlockTitlePatterns  []*regexp.Regexp            // matched against the start of title and summary
	BlockKeywords       []string                    // bracketed markers, matched lowercased anywhere in title and summary
	SourceBlockPatterns map[string][]*regexp.Regexp // source name -> URL patterns
}

// DefaultFilter blocks common sponsored-content markers in Korean, English
// and Japanese feeds.
func DefaultFilter() *Filter {
	f := &Filter{
		BlockKeywords: []string{
			"[ad]",
			"[sponsored]",
			"[advertisement]",
			"[paid content]",
			"[광고]",
			"[협찬]",
			"[pr]",
			"[기사형 광고]",
			"[애드버토리얼]",
			"[pr記事]",
			"【pr】",
			"【広告】",
			"【広告企画】",
			"【提供記事】",
		},
		SourceBlockPatterns: make(map[string][]*regexp.Regexp),
	}

	f.BlockURLPatterns = compilePatterns([]string{
		`/sponsored/`,
		`/branded-content/`,
		`/advertisement/`,
		`/paid-post/`,
		`doubleclick\.net`,
		`googlesyndication\.com`,
		`utm_source=paid`,
		`/adv/`,
	})

	f.BlockTitlePatterns = compilePatterns([]string{
		`(?i)^(sponsored|advertisement|ad|paid post|paid content|partner content|branded content)\s*[:|]`,
		`^\[\s*(광고|협찬|기사형 광고|애드버토리얼)\s*\]`,
		`^(광고|협찬)\s*[:|]`,
		`^【(PR|広告)】`,
		`^(広告企画|提供記事)\s*[:：|]`,
	})

	// Outlet sections that are shopping or event listings.
	f.SourceBlockPatterns["조선일보"] = compilePatterns([]string{`/promotion/`, `/event/`})
	f.SourceBlockPatterns["매일경제"] = compilePatterns([]string{`/shopping/`, `/event/`})

	return f
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	result := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			result = append(result, re)
		}
	}
	return result
}

// ShouldBlock reports whether e should be left out of lists. Entries
// without a title are always blocked.
func (f *Filter) ShouldBlock(e Entry) bool {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return true
	}

	for _, re := range f.BlockURLPatterns {
		if re.MatchString(e.Link) {
			return true
		}
	}
	for _, re := range f.SourceBlockPatterns[e.Source] {
		if re.MatchString(e.Link) {
			return true
		}
	}
	summary := strings.TrimSpace(e.Summary)
	for _, re := range f.BlockTitlePatterns {
		if re.MatchString(title) || re.MatchString(summary) {
			return true
		}
	}

	titleLower := strings.ToLower(title)
	summaryLower := strings.ToLower(summary)
	for _, kw := range f.BlockKeywords {
		if strings.Contains(titleLower, kw) || strings.Contains(summaryLower, kw) {
			return true
		}
	}
	return false
}

// Apply returns entries with blocked ones removed, keeping order.
func (f *Filter) Apply(entries []Entry) []Entry {
	result := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !f.ShouldBlock(e) {
			result = append(result, e)
		}
	}
	return result
}

// BlockedCount returns how many entries Apply would remove.
func (f *Filter) BlockedCount(entries []Entry) int {
	count := 0
	for _, e := range entries {
		if f.ShouldBlock(e) {
			count++
		}
	}
	return count
}
