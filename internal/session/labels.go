package session

import (
	"errors"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abelbrown/newslens/internal/fetch"
	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/pipeline"
	"github.com/abelbrown/newslens/internal/prompt"
)

// Fact-ratio tiers.
const (
	TierFactBased = "fact-based"
	TierMixed     = "mixed"
	TierOpinion   = "opinion"
)

// Stance leans.
const (
	LeanLeft   = "left"
	LeanCenter = "center"
	LeanRight  = "right"
)

// Tier buckets a fact ratio: 80 and above is fact-based, 50 and above is
// mixed, anything lower is opinion.
func Tier(factRatio int) string {
	switch {
	case factRatio >= 80:
		return TierFactBased
	case factRatio >= 50:
		return TierMixed
	default:
		return TierOpinion
	}
}

// Lean buckets a stance score in [-10, 10].
func Lean(score int) string {
	switch {
	case score <= -4:
		return LeanLeft
	case score >= 4:
		return LeanRight
	default:
		return LeanCenter
	}
}

// Labels are the localized display strings.
type Labels struct {
	Tiers       map[string]string
	Leans       map[string]string
	Ratings     map[insight.Rating]string
	Sentiments  map[insight.Sentiment]string
	Fact        string
	Opinion     string
	Unavailable string
	NoArticles  string
	EmptyAsk    string
	Pending     string
	Fields      map[string]string // card field captions, keyed by English name
}

// Field returns the caption for a card field.
func (l Labels) Field(name string) string {
	if v, ok := l.Fields[name]; ok {
		return v
	}
	return name
}

var labels = map[prompt.Language]Labels{
	prompt.Korean: {
		Tiers:       map[string]string{TierFactBased: "팩트 중심", TierMixed: "혼합", TierOpinion: "의견 중심"},
		Leans:       map[string]string{LeanLeft: "진보", LeanCenter: "중도", LeanRight: "보수"},
		Ratings:     map[insight.Rating]string{insight.RatingFact: "사실", insight.RatingMixed: "혼합", insight.RatingOpinion: "의견"},
		Sentiments:  map[insight.Sentiment]string{insight.SentimentHot: "격앙", insight.SentimentNeutral: "중립", insight.SentimentCold: "냉정"},
		Fact:        "팩트",
		Opinion:     "의견",
		Unavailable: "분석을 불러오지 못했습니다. 잠시 후 다시 시도해 주세요.",
		NoArticles:  "기사를 불러오지 못했습니다.",
		EmptyAsk:    "질문을 입력해 주세요.",
		Pending:     "분석 중…",
		Fields: map[string]string{
			"Summary": "요약", "Claim": "주장", "Context": "숨은 맥락", "Rating": "판정", "Tone": "논조",
			"Keywords": "키워드", "Missing": "빠진 관점", "Verify": "검증 필요", "Difference": "핵심 차이",
		},
	},
	prompt.English: {
		Tiers:       map[string]string{TierFactBased: "Fact-based", TierMixed: "Mixed", TierOpinion: "Opinion"},
		Leans:       map[string]string{LeanLeft: "Left", LeanCenter: "Center", LeanRight: "Right"},
		Ratings:     map[insight.Rating]string{insight.RatingFact: "Fact", insight.RatingMixed: "Mixed", insight.RatingOpinion: "Opinion"},
		Sentiments:  map[insight.Sentiment]string{insight.SentimentHot: "Heated", insight.SentimentNeutral: "Neutral", insight.SentimentCold: "Cool"},
		Fact:        "Fact",
		Opinion:     "Opinion",
		Unavailable: "Analysis unavailable. Please try again.",
		NoArticles:  "Could not load articles.",
		EmptyAsk:    "Type a question first.",
		Pending:     "Analyzing…",
	},
	prompt.Japanese: {
		Tiers:       map[string]string{TierFactBased: "事実中心", TierMixed: "混合", TierOpinion: "意見中心"},
		Leans:       map[string]string{LeanLeft: "リベラル", LeanCenter: "中道", LeanRight: "保守"},
		Ratings:     map[insight.Rating]string{insight.RatingFact: "事実", insight.RatingMixed: "混合", insight.RatingOpinion: "意見"},
		Sentiments:  map[insight.Sentiment]string{insight.SentimentHot: "過熱", insight.SentimentNeutral: "中立", insight.SentimentCold: "冷静"},
		Fact:        "事実",
		Opinion:     "意見",
		Unavailable: "分析を取得できませんでした。もう一度お試しください。",
		NoArticles:  "記事を取得できませんでした。",
		EmptyAsk:    "質問を入力してください。",
		Pending:     "分析中…",
		Fields: map[string]string{
			"Summary": "要約", "Claim": "主張", "Context": "隠れた文脈", "Rating": "判定", "Tone": "論調",
			"Keywords": "キーワード", "Missing": "欠けた視点", "Verify": "要検証", "Difference": "核心的な違い",
		},
	},
}

// LabelsFor returns the labels for lang, falling back to English.
func LabelsFor(lang prompt.Language) Labels {
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels[prompt.English]
}

// Notice maps any pipeline failure to the one message the user sees. Feed
// failures get the no-articles notice; generation and normalization
// failures are indistinguishable to the reader and share a notice.
func Notice(err error, lang prompt.Language) string {
	if err == nil {
		return ""
	}
	l := LabelsFor(lang)

	var unavailable *fetch.FeedUnavailable
	switch {
	case errors.As(err, &unavailable), errors.Is(err, pipeline.ErrUnknownCategory):
		return l.NoArticles
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		return l.EmptyAsk
	default:
		return l.Unavailable
	}
}

var relMagnitudes = map[prompt.Language][]humanize.RelTimeMagnitude{
	prompt.Korean: {
		{D: time.Minute, Format: "방금", DivBy: time.Second},
		{D: time.Hour, Format: "%d분 %s", DivBy: time.Minute},
		{D: humanize.Day, Format: "%d시간 %s", DivBy: time.Hour},
		{D: humanize.Month, Format: "%d일 %s", DivBy: humanize.Day},
		{D: math.MaxInt64, Format: "%d개월 %s", DivBy: humanize.Month},
	},
	prompt.Japanese: {
		{D: time.Minute, Format: "たった今", DivBy: time.Second},
		{D: time.Hour, Format: "%d分%s", DivBy: time.Minute},
		{D: humanize.Day, Format: "%d時間%s", DivBy: time.Hour},
		{D: humanize.Month, Format: "%d日%s", DivBy: humanize.Day},
		{D: math.MaxInt64, Format: "%dか月%s", DivBy: humanize.Month},
	},
}

var relLabels = map[prompt.Language][2]string{
	prompt.Korean:   {"전", "후"},
	prompt.Japanese: {"前", "後"},
}

// Age renders how long ago t was, relative to now.
func Age(t, now time.Time, lang prompt.Language) string {
	if t.IsZero() {
		return ""
	}
	mags, ok := relMagnitudes[lang]
	if !ok {
		return humanize.RelTime(t, now, "ago", "from now")
	}
	lbl := relLabels[lang]
	return humanize.CustomRelTime(t, now, lbl[0], lbl[1], mags)
}
