// Package insight holds the structured records produced from model output
// and the rules that turn a salvaged JSON object into one.
package insight

import (
	"strings"

	"github.com/abelbrown/newslens/internal/normalize"
)

// Rating classifies an article overall.
type Rating string

const (
	RatingFact    Rating = "FACT"
	RatingMixed   Rating = "MIXED"
	RatingOpinion Rating = "OPINION"
)

// Sentiment is the emotional temperature of the coverage.
type Sentiment string

const (
	SentimentHot     Sentiment = "HOT"
	SentimentNeutral Sentiment = "NEUTRAL"
	SentimentCold    Sentiment = "COLD"
)

// DefaultRatio is used when a ratio is missing or unreadable.
const DefaultRatio = 50

// Fact is one checkable statement and the article text supporting it.
type Fact struct {
	Fact     string `json:"fact"`
	Evidence string `json:"evidence"`
}

// Analysis is the single-article result.
type Analysis struct {
	Title              string    `json:"title"`
	Summary            string    `json:"summary"`
	FactRatio          int       `json:"fact_ratio"`
	OpinionRatio       int       `json:"opinion_ratio"`
	StatedClaim        string    `json:"stated_claim"`
	HiddenContext      string    `json:"hidden_context"`
	Rating             Rating    `json:"rating"`
	Keywords           []string  `json:"keywords"`
	Sentiment          Sentiment `json:"sentiment"`
	Facts              []Fact    `json:"facts"`
	MissingViewpoints  string    `json:"missing_viewpoints"`
	VerificationNeeded string    `json:"verification_needed"`
}

// ParseAnalysis reduces raw model text to an Analysis, or nil when no JSON
// object can be salvaged. Any object yields a record: absent fields take
// their defaults.
func ParseAnalysis(raw string) *Analysis {
	f, ok := normalize.Extract(raw)
	if !ok {
		return nil
	}
	return AnalysisFromFields(f)
}

// AnalysisFromFields applies defaults and clamping to an extracted object.
func AnalysisFromFields(f normalize.Fields) *Analysis {
	a := &Analysis{
		FactRatio:    ratio(f, "fact_ratio"),
		OpinionRatio: ratio(f, "opinion_ratio"),
		Keywords:     []string{},
		Facts:        []Fact{},
	}
	a.Title, _ = f.String("title")
	a.Summary, _ = f.String("summary")
	a.StatedClaim, _ = f.String("stated_claim")
	a.HiddenContext, _ = f.String("hidden_context")
	a.MissingViewpoints, _ = f.String("missing_viewpoints")
	a.VerificationNeeded, _ = f.String("verification_needed")

	if s, ok := f.String("rating"); ok {
		a.Rating = ParseRating(s)
	}
	if a.Rating == "" {
		a.Rating = RatingFor(a.FactRatio)
	}

	a.Sentiment = SentimentNeutral
	if s, ok := f.String("sentiment"); ok {
		if v := ParseSentiment(s); v != "" {
			a.Sentiment = v
		}
	}

	if kw, ok := f.Strings("keywords"); ok {
		a.Keywords = kw
	}

	if objs, ok := f.Objects("facts"); ok {
		for _, o := range objs {
			fact, _ := o.String("fact")
			evidence, _ := o.String("evidence")
			if fact == "" && evidence == "" {
				continue
			}
			a.Facts = append(a.Facts, Fact{Fact: fact, Evidence: evidence})
		}
	}
	return a
}

// JSON serializes the analysis in the shape ParseAnalysis reads. Absent
// lists are written as [] rather than null.
func (a *Analysis) JSON() string {
	out := *a
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	if out.Facts == nil {
		out.Facts = []Fact{}
	}
	return normalize.Marshal(&out)
}

// RatingFor derives a rating from the fact ratio using the display tiers.
func RatingFor(factRatio int) Rating {
	switch {
	case factRatio >= 80:
		return RatingFact
	case factRatio >= 50:
		return RatingMixed
	default:
		return RatingOpinion
	}
}

// ParseRating maps model spellings, including Korean and Japanese labels,
// to a Rating. Unknown spellings return "".
func ParseRating(s string) Rating {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FACT", "FACTUAL", "FACT-BASED", "사실", "팩트", "事実":
		return RatingFact
	case "MIXED", "MIX", "혼합", "混合":
		return RatingMixed
	case "OPINION", "OPINIONATED", "의견", "주장", "意見":
		return RatingOpinion
	}
	return ""
}

// ParseSentiment maps model spellings to a Sentiment. Unknown spellings
// return "".
func ParseSentiment(s string) Sentiment {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HOT", "🔥", "뜨거움", "과열":
		return SentimentHot
	case "NEUTRAL", "중립", "中立":
		return SentimentNeutral
	case "COLD", "차가움", "냉정":
		return SentimentCold
	}
	return ""
}

func ratio(f normalize.Fields, key string) int {
	v, ok := f.Int(key)
	if !ok {
		return DefaultRatio
	}
	return normalize.Clamp(v, 0, 100)
}
