package insight

import (
	"reflect"
	"strings"
	"testing"
)

func sampleAnalysis() *Analysis {
	return &Analysis{
		Title:         "국회, 예산안 처리 지연",
		Summary:       "여야 대립으로 예산안 처리가 늦어지고 있다.",
		FactRatio:     72,
		OpinionRatio:  41,
		StatedClaim:   "야당이 협상을 거부했다",
		HiddenContext: "여당 내부 이견은 다루지 않음",
		Rating:        RatingMixed,
		Keywords:      []string{"국회", "예산"},
		Sentiment:     SentimentHot,
		Facts: []Fact{
			{Fact: "본회의가 연기되었다", Evidence: "본회의는 다음 주로 미뤄졌다."},
		},
		MissingViewpoints:  "시민단체 의견",
		VerificationNeeded: "협상 거부 여부",
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	cases := []*Analysis{
		sampleAnalysis(),
		{Rating: RatingOpinion, Sentiment: SentimentCold, Keywords: []string{}, Facts: []Fact{}},
		{Title: `quotes " and <tags> & newlines`, FactRatio: 100, Rating: RatingFact, Sentiment: SentimentNeutral, Keywords: []string{}, Facts: []Fact{}},
	}
	for i, a := range cases {
		got := ParseAnalysis(a.JSON())
		if got == nil {
			t.Fatalf("case %d: round trip returned nil", i)
		}
		if !reflect.DeepEqual(got, a) {
			t.Errorf("case %d: round trip mismatch\n got: %+v\nwant: %+v", i, got, a)
		}
	}
}

func TestAnalysisJSONNilLists(t *testing.T) {
	a := &Analysis{Title: "t", FactRatio: 60, OpinionRatio: 40, Rating: RatingMixed, Sentiment: SentimentHot}
	raw := a.JSON()
	for _, want := range []string{`"keywords":[]`, `"facts":[]`} {
		if !strings.Contains(raw, want) {
			t.Errorf("JSON() = %s, want it to contain %s", raw, want)
		}
	}
	if a.Keywords != nil || a.Facts != nil {
		t.Error("JSON() should not modify the receiver")
	}

	want := *a
	want.Keywords, want.Facts = []string{}, []Fact{}
	if got := ParseAnalysis(raw); !reflect.DeepEqual(got, &want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, &want)
	}
}

func TestParseAnalysisFromFencedOutput(t *testing.T) {
	raw := "```json\n{\"title\":\"t\",\"fact_ratio\":85,\"opinion_ratio\":\"20%\",\"rating\":\"사실\",\"sentiment\":\"cold\",\n\"summary\":\"line\nbreak\"}\n```"
	a := ParseAnalysis(raw)
	if a == nil {
		t.Fatal("expected analysis")
	}
	if a.FactRatio != 85 || a.OpinionRatio != 20 {
		t.Errorf("ratios = %d/%d", a.FactRatio, a.OpinionRatio)
	}
	if a.Rating != RatingFact {
		t.Errorf("rating = %q", a.Rating)
	}
	if a.Sentiment != SentimentCold {
		t.Errorf("sentiment = %q", a.Sentiment)
	}
	if a.Summary != "line break" {
		t.Errorf("summary = %q", a.Summary)
	}
}

func TestParseAnalysisDefaults(t *testing.T) {
	a := ParseAnalysis(`{"title": 42, "fact_ratio": "lots", "keywords": null, "rating": "whatever"}`)
	if a == nil {
		t.Fatal("any object should produce a record")
	}
	if a.FactRatio != DefaultRatio || a.OpinionRatio != DefaultRatio {
		t.Errorf("expected default ratios, got %d/%d", a.FactRatio, a.OpinionRatio)
	}
	if a.Rating != RatingMixed {
		t.Errorf("unknown rating should derive from ratio tier, got %q", a.Rating)
	}
	if a.Sentiment != SentimentNeutral {
		t.Errorf("sentiment default = %q", a.Sentiment)
	}
	if a.Keywords == nil || a.Facts == nil {
		t.Error("list fields should default to empty, not nil")
	}
	if a.Title != "42" {
		t.Errorf("numeric title should read as text, got %q", a.Title)
	}
}

func TestParseAnalysisClampsRatios(t *testing.T) {
	tests := []struct {
		raw       string
		fact, opi int
	}{
		{`{"fact_ratio": 140, "opinion_ratio": -3}`, 100, 0},
		{`{"fact_ratio": 79.5, "opinion_ratio": 49.4}`, 80, 49},
		{`{"fact_ratio": "100%", "opinion_ratio": "0"}`, 100, 0},
	}
	for _, tt := range tests {
		a := ParseAnalysis(tt.raw)
		if a.FactRatio != tt.fact || a.OpinionRatio != tt.opi {
			t.Errorf("%s: got %d/%d, want %d/%d", tt.raw, a.FactRatio, a.OpinionRatio, tt.fact, tt.opi)
		}
	}
}

func TestParseAnalysisRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{"", "no json here", `{"title": "cut off`, "[]"} {
		if a := ParseAnalysis(raw); a != nil {
			t.Errorf("ParseAnalysis(%q) = %+v, want nil", raw, a)
		}
	}
}

func TestParseAnalysisSkipsEmptyFacts(t *testing.T) {
	a := ParseAnalysis(`{"facts": [{"fact": "a", "evidence": "b"}, {}, "junk", {"fact": "c"}]}`)
	if len(a.Facts) != 2 {
		t.Fatalf("expected 2 facts, got %+v", a.Facts)
	}
	if a.Facts[1] != (Fact{Fact: "c"}) {
		t.Errorf("unexpected fact %+v", a.Facts[1])
	}
}

func TestRatingFor(t *testing.T) {
	tests := []struct {
		ratio int
		want  Rating
	}{
		{100, RatingFact},
		{80, RatingFact},
		{79, RatingMixed},
		{50, RatingMixed},
		{49, RatingOpinion},
		{0, RatingOpinion},
	}
	for _, tt := range tests {
		if got := RatingFor(tt.ratio); got != tt.want {
			t.Errorf("RatingFor(%d) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}

func TestParseRatingAndSentiment(t *testing.T) {
	ratings := map[string]Rating{
		"fact": RatingFact, " Mixed ": RatingMixed, "의견": RatingOpinion, "혼합": RatingMixed, "nope": "",
	}
	for in, want := range ratings {
		if got := ParseRating(in); got != want {
			t.Errorf("ParseRating(%q) = %q, want %q", in, got, want)
		}
	}
	sentiments := map[string]Sentiment{
		"hot": SentimentHot, "NEUTRAL": SentimentNeutral, "중립": SentimentNeutral, "cold": SentimentCold, "warm": "",
	}
	for in, want := range sentiments {
		if got := ParseSentiment(in); got != want {
			t.Errorf("ParseSentiment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestComparisonRoundTrip(t *testing.T) {
	c := &Comparison{
		CoreDifference: "A는 경제 효과를, B는 환경 비용을 강조",
		SideA:          Side{StanceLabel: "개발 찬성", StanceScore: 6, Summary: "일자리 창출"},
		SideB:          Side{StanceLabel: "환경 우선", StanceScore: -7, Summary: "습지 훼손"},
		KeyPoints:      []string{"예산 규모", "환경영향평가"},
	}
	got := ParseComparison(c.JSON())
	if !reflect.DeepEqual(got, c) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, c)
	}
}

func TestComparisonJSONNilKeyPoints(t *testing.T) {
	c := &Comparison{CoreDifference: "d", SideA: Side{StanceScore: -3}, SideB: Side{StanceScore: 4}}
	raw := c.JSON()
	if !strings.Contains(raw, `"key_points":[]`) {
		t.Errorf("JSON() = %s, want empty key_points", raw)
	}

	want := *c
	want.KeyPoints = []string{}
	if got := ParseComparison(raw); !reflect.DeepEqual(got, &want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, &want)
	}
}

func TestParseComparisonDefaultsAndClamp(t *testing.T) {
	c := ParseComparison(`Sure! {"side_a": {"stance_score": 25, "stance_label": "right"}, "side_b": "oops", "key_points": "a, b"} done`)
	if c == nil {
		t.Fatal("expected comparison")
	}
	if c.SideA.StanceScore != MaxStance {
		t.Errorf("stance should clamp to %d, got %d", MaxStance, c.SideA.StanceScore)
	}
	if c.SideB != (Side{}) {
		t.Errorf("ill-typed side should default, got %+v", c.SideB)
	}
	if len(c.KeyPoints) != 2 {
		t.Errorf("key points = %v", c.KeyPoints)
	}

	if ParseComparison("the model refused") != nil {
		t.Error("expected nil without an object")
	}
}
