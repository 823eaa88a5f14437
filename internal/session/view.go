package session

import (
	"slices"
	"time"

	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/prompt"
)

// ArticleRow is one line of the article list.
type ArticleRow struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Source   string `json:"source"`
	Link     string `json:"link"`
	Age      string `json:"age"`
	Expanded bool   `json:"expanded"`
	Picked   bool   `json:"picked"`
}

// AnalysisCard is the open analysis panel under an article.
type AnalysisCard struct {
	Key                string             `json:"key"`
	Title              string             `json:"title,omitempty"`
	Summary            string             `json:"summary,omitempty"`
	FactRatio          int                `json:"fact_ratio"`
	OpinionRatio       int                `json:"opinion_ratio"`
	Tier               string             `json:"tier,omitempty"`
	TierLabel          string             `json:"tier_label,omitempty"`
	RatingLabel        string             `json:"rating_label,omitempty"`
	SentimentLabel     string             `json:"sentiment_label,omitempty"`
	StatedClaim        string             `json:"stated_claim,omitempty"`
	HiddenContext      string             `json:"hidden_context,omitempty"`
	Keywords           []string           `json:"keywords,omitempty"`
	Facts              []insight.Fact     `json:"facts,omitempty"`
	MissingViewpoints  string             `json:"missing_viewpoints,omitempty"`
	VerificationNeeded string             `json:"verification_needed,omitempty"`
	Thread             []insight.ChatTurn `json:"thread"`
	Pending            bool               `json:"pending,omitempty"`
	Unavailable        bool               `json:"unavailable,omitempty"`
	Notice             string             `json:"notice,omitempty"`
}

// SidePanel is one column of the comparison.
type SidePanel struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	StanceLabel string `json:"stance_label"`
	StanceScore int    `json:"stance_score"`
	Lean        string `json:"lean"`
	LeanLabel   string `json:"lean_label"`
	Summary     string `json:"summary"`
}

// ComparisonPanel shows two picked articles side by side.
type ComparisonPanel struct {
	CoreDifference string    `json:"core_difference,omitempty"`
	A              SidePanel `json:"a"`
	B              SidePanel `json:"b"`
	KeyPoints      []string  `json:"key_points,omitempty"`
	Unavailable    bool      `json:"unavailable,omitempty"`
	Notice         string    `json:"notice,omitempty"`
}

// Page is everything a surface needs to draw one screen.
type Page struct {
	Language   prompt.Language  `json:"language"`
	Category   string           `json:"category"`
	Categories []string         `json:"categories"`
	Articles   []ArticleRow     `json:"articles"`
	Cards      []AnalysisCard   `json:"cards"`
	Comparison *ComparisonPanel `json:"comparison,omitempty"`
	Notice     string           `json:"notice,omitempty"`
}

// Results carries pipeline outcomes into RenderModel. Maps are keyed by
// entry key; an open article with neither an analysis nor a failure is
// pending.
type Results struct {
	Categories []string
	FetchErr   error
	Analyses   map[string]*insight.Analysis
	Failures   map[string]error
	Comparison *insight.Comparison
	CompareErr error
	Now        time.Time
}

// RenderModel builds the view model for state. It never fails: every error
// in results becomes a notice on the part of the page it affects.
func RenderModel(state *State, entries []feeds.Entry, results Results) Page {
	lang := state.Language()
	l := LabelsFor(lang)
	now := results.Now
	if now.IsZero() {
		now = time.Now()
	}

	picks := state.Picks()
	page := Page{
		Language:   lang,
		Category:   state.Category(),
		Categories: results.Categories,
		Articles:   make([]ArticleRow, 0, len(entries)),
		Cards:      []AnalysisCard{},
		Notice:     Notice(results.FetchErr, lang),
	}
	if len(entries) > 0 && results.FetchErr != nil {
		// Partial failure: the list is still useful, keep quiet.
		page.Notice = ""
	}

	byKey := make(map[string]feeds.Entry, len(entries))
	for _, e := range entries {
		key := e.Key()
		byKey[key] = e
		expanded := state.Expanded(key)
		page.Articles = append(page.Articles, ArticleRow{
			Key:      key,
			Title:    e.Title,
			Source:   e.Source,
			Link:     e.Link,
			Age:      Age(e.PublishedAt, now, lang),
			Expanded: expanded,
			Picked:   slices.Contains(picks, key),
		})
		if expanded {
			page.Cards = append(page.Cards, card(key, state.Thread(key), results, l, lang))
		}
	}

	if len(picks) == MaxPicks && (results.Comparison != nil || results.CompareErr != nil) {
		page.Comparison = comparisonPanel(byKey[picks[0]], byKey[picks[1]], results, l, lang)
	}
	return page
}

// AnalysisCardFor maps one analysis (or its failure) to a card.
func AnalysisCardFor(key string, a *insight.Analysis, err error, thread []insight.ChatTurn, lang prompt.Language) AnalysisCard {
	results := Results{
		Analyses: map[string]*insight.Analysis{key: a},
		Failures: map[string]error{key: err},
	}
	if a == nil {
		delete(results.Analyses, key)
	}
	if err == nil {
		delete(results.Failures, key)
	}
	return card(key, thread, results, LabelsFor(lang), lang)
}

func card(key string, thread []insight.ChatTurn, results Results, l Labels, lang prompt.Language) AnalysisCard {
	c := AnalysisCard{Key: key, Thread: thread}
	if c.Thread == nil {
		c.Thread = []insight.ChatTurn{}
	}

	a, ok := results.Analyses[key]
	if !ok || a == nil {
		if err := results.Failures[key]; err != nil {
			c.Unavailable = true
			c.Notice = Notice(err, lang)
		} else {
			c.Pending = true
			c.Notice = l.Pending
		}
		return c
	}

	tier := Tier(a.FactRatio)
	c.Title = a.Title
	c.Summary = a.Summary
	c.FactRatio = a.FactRatio
	c.OpinionRatio = a.OpinionRatio
	c.Tier = tier
	c.TierLabel = l.Tiers[tier]
	c.RatingLabel = l.Ratings[a.Rating]
	c.SentimentLabel = l.Sentiments[a.Sentiment]
	c.StatedClaim = a.StatedClaim
	c.HiddenContext = a.HiddenContext
	c.Keywords = a.Keywords
	c.Facts = a.Facts
	c.MissingViewpoints = a.MissingViewpoints
	c.VerificationNeeded = a.VerificationNeeded
	return c
}

// ComparisonPanelFor maps one comparison (or its failure) to a panel.
func ComparisonPanelFor(a, b feeds.Entry, cmp *insight.Comparison, err error, lang prompt.Language) *ComparisonPanel {
	return comparisonPanel(a, b, Results{Comparison: cmp, CompareErr: err}, LabelsFor(lang), lang)
}

func comparisonPanel(a, b feeds.Entry, results Results, l Labels, lang prompt.Language) *ComparisonPanel {
	p := &ComparisonPanel{
		A: SidePanel{Key: a.Key(), Title: a.Title, Source: a.Source},
		B: SidePanel{Key: b.Key(), Title: b.Title, Source: b.Source},
	}
	c := results.Comparison
	if c == nil {
		p.Unavailable = true
		p.Notice = Notice(results.CompareErr, lang)
		if p.Notice == "" {
			p.Notice = l.Unavailable
		}
		return p
	}

	p.CoreDifference = c.CoreDifference
	p.KeyPoints = c.KeyPoints
	fill := func(s *SidePanel, side insight.Side) {
		s.StanceLabel = side.StanceLabel
		s.StanceScore = side.StanceScore
		s.Lean = Lean(side.StanceScore)
		s.LeanLabel = l.Leans[s.Lean]
		s.Summary = side.Summary
	}
	fill(&p.A, c.SideA)
	fill(&p.B, c.SideB)
	return p
}
