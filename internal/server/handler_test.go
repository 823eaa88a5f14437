package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"github.com/abelbrown/newslens/internal/brain"
	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/fetch"
	"github.com/abelbrown/newslens/internal/pipeline"
	"github.com/abelbrown/newslens/internal/prompt"
	"github.com/abelbrown/newslens/internal/session"
	"github.com/abelbrown/newslens/internal/store"
)

const analysisJSON = `{"title":"t","summary":"s","fact_ratio":82,"opinion_ratio":18,"rating":"FACT","keywords":["k"],"sentiment":"NEUTRAL","facts":[]}`

const comparisonJSON = `{"core_difference":"d","side_a":{"stance_label":"L","stance_score":-6,"summary":"a"},"side_b":{"stance_label":"R","stance_score":5,"summary":"b"},"key_points":[]}`

type fakeSource struct {
	entries []feeds.Entry
	err     error
}

func (f *fakeSource) FetchCategory(ctx context.Context, cat feeds.Category) ([]feeds.Entry, error) {
	return f.entries, f.err
}

func (f *fakeSource) Invalidate() {}

type fakeGenerator struct {
	calls atomic.Int32
	reply func(req brain.Request) (brain.Response, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, req brain.Request, hint string) (brain.Response, error) {
	g.calls.Add(1)
	return g.reply(req)
}

// byKind answers with the JSON matching the prompt, or plain text for chat.
func byKind(req brain.Request) (brain.Response, error) {
	switch {
	case !req.JSON:
		return brain.Response{Content: "It quotes two officials.", Model: "m"}, nil
	case strings.Contains(req.Messages[len(req.Messages)-1].Content, "ARTICLE B"):
		return brain.Response{Content: comparisonJSON, Model: "m"}, nil
	default:
		return brain.Response{Content: analysisJSON, Model: "m"}, nil
	}
}

func failing(brain.Request) (brain.Response, error) {
	return brain.Response{}, &brain.GenerationError{Kind: brain.KindExhausted, Backend: "fake", Attempts: 2}
}

type fakeStatus struct{ state brain.State }

func (f fakeStatus) Backend() string    { return "gemini" }
func (f fakeStatus) State() brain.State { return f.state }

var testEntries = []feeds.Entry{
	{ID: "https://news.example/1", Title: "First", Source: "A", PublishedAt: time.Now().Add(-time.Hour)},
	{ID: "https://news.example/2", Title: "Second", Source: "B", PublishedAt: time.Now().Add(-2 * time.Hour)},
}

type testServer struct {
	router *gin.Engine
	gen    *fakeGenerator
	src    *fakeSource
	store  *store.Store
}

func newTestServer(t *testing.T, reply func(brain.Request) (brain.Response, error)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	src := &fakeSource{entries: testEntries}
	gen := &fakeGenerator{reply: reply}
	p := pipeline.New(src, gen, pipeline.Options{
		Categories: []feeds.Category{
			{Name: "politics", Feeds: []feeds.Feed{{Name: "A", URL: "http://a"}}},
			{Name: "economy", Feeds: []feeds.Feed{{Name: "B", URL: "http://b"}}},
		},
		Store: st,
	})
	sessions := session.NewManager(time.Hour, prompt.English, "")
	h := NewHandler(p, sessions, fakeStatus{state: brain.State{Phase: brain.Resolved, Model: "gemini-2.5-flash"}})
	return &testServer{router: NewRouter(h, []string{"http://localhost:3000"}), gen: gen, src: src, store: st}
}

func (s *testServer) do(method, path, body, sessionID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// load lists articles so keys are known to the pipeline, returning the
// session id.
func (s *testServer) load(t *testing.T) string {
	t.Helper()
	w := s.do("GET", "/articles?category=politics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Header().Get(SessionHeader)
}

func TestGetHealth(t *testing.T) {
	s := newTestServer(t, byKind)
	w := s.do("GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res HealthResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "resolved", res.Phase)
	assert.Equal(t, "gemini-2.5-flash", res.Model)
}

func TestGetCategories(t *testing.T) {
	s := newTestServer(t, byKind)
	w := s.do("GET", "/categories", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res []CategoryResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res))
	assert.Equal(t, "politics", res[0].Name)
	assert.Equal(t, 1, res[0].Feeds)
}

func TestGetArticles(t *testing.T) {
	s := newTestServer(t, byKind)
	w := s.do("GET", "/articles?category=politics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "", w.Header().Get(SessionHeader))

	var page session.Page
	json.Unmarshal(w.Body.Bytes(), &page)
	assert.Equal(t, "politics", page.Category)
	assert.Equal(t, 2, len(page.Articles))
	assert.Equal(t, testEntries[0].Key(), page.Articles[0].Key)
	assert.Equal(t, "1 hour ago", page.Articles[0].Age)
	assert.Equal(t, "", page.Notice)
}

func TestGetArticlesDefaultsToFirstCategory(t *testing.T) {
	s := newTestServer(t, byKind)
	w := s.do("GET", "/articles", "", "")

	var page session.Page
	json.Unmarshal(w.Body.Bytes(), &page)
	assert.Equal(t, "politics", page.Category)
}

func TestGetArticlesFeedFailureDegrades(t *testing.T) {
	s := newTestServer(t, byKind)
	s.src.entries = nil
	s.src.err = errors.Join(&fetch.FeedUnavailable{URL: "http://a", Status: 503})

	w := s.do("GET", "/articles?category=politics&lang=ko", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var page session.Page
	json.Unmarshal(w.Body.Bytes(), &page)
	assert.Equal(t, 0, len(page.Articles))
	assert.Equal(t, session.LabelsFor(prompt.Korean).NoArticles, page.Notice)
}

func TestGetArticlesBadInput(t *testing.T) {
	s := newTestServer(t, byKind)
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/articles?category=sports", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/articles?lang=fr", "", "").Code)
}

func TestPostAnalyze(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	key := testEntries[0].Key()

	w := s.do("POST", "/articles/"+key+"/analyze", "", id)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, w.Header().Get(SessionHeader))

	var card session.AnalysisCard
	json.Unmarshal(w.Body.Bytes(), &card)
	assert.Equal(t, 82, card.FactRatio)
	assert.Equal(t, session.TierFactBased, card.Tier)
	assert.Equal(t, false, card.Unavailable)

	// Second call is served from the cache.
	s.do("POST", "/articles/"+key+"/analyze", "", id)
	assert.Equal(t, int32(1), s.gen.calls.Load())

	// The article list now carries the open card.
	w = s.do("GET", "/articles?category=politics", "", id)
	var page session.Page
	json.Unmarshal(w.Body.Bytes(), &page)
	assert.Equal(t, 1, len(page.Cards))
	assert.Equal(t, true, page.Articles[0].Expanded)
}

func TestPostAnalyzeUnknownKey(t *testing.T) {
	s := newTestServer(t, byKind)
	w := s.do("POST", "/articles/deadbeef/analyze", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostAnalyzeGenerationFailureDegrades(t *testing.T) {
	s := newTestServer(t, failing)
	id := s.load(t)

	w := s.do("POST", "/articles/"+testEntries[0].Key()+"/analyze", "", id)
	assert.Equal(t, http.StatusOK, w.Code)

	var card session.AnalysisCard
	json.Unmarshal(w.Body.Bytes(), &card)
	assert.Equal(t, true, card.Unavailable)
	assert.Equal(t, session.LabelsFor(prompt.English).Unavailable, card.Notice)
}

func TestChat(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	path := "/articles/" + testEntries[0].Key() + "/chat"

	w := s.do("POST", path, `{"question":"Who is quoted?"}`, id)
	assert.Equal(t, http.StatusOK, w.Code)

	var res ChatResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "It quotes two officials.", res.Answer.Content)
	assert.Equal(t, 2, len(res.Thread))

	w = s.do("GET", path, "", id)
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res.Thread))

	// Another session has its own thread.
	w = s.do("GET", path, "", "")
	var other ChatResponse
	json.Unmarshal(w.Body.Bytes(), &other)
	assert.Equal(t, 0, len(other.Thread))
}

func TestChatBadInput(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	path := "/articles/" + testEntries[0].Key() + "/chat"

	assert.Equal(t, http.StatusBadRequest, s.do("POST", path, `{}`, id).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", path, `{"question":"   "}`, id).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", path, `not json`, id).Code)
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/articles/nope/chat", `{"question":"q"}`, id).Code)
}

func TestChatFailureKeepsThread(t *testing.T) {
	s := newTestServer(t, failing)
	id := s.load(t)

	w := s.do("POST", "/articles/"+testEntries[0].Key()+"/chat", `{"question":"q"}`, id)
	assert.Equal(t, http.StatusOK, w.Code)

	var res ChatResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, true, res.Unavailable)
	assert.Equal(t, 0, len(res.Thread))
}

func TestPostCompare(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	body := `{"a":"` + testEntries[0].Key() + `","b":"` + testEntries[1].Key() + `"}`

	w := s.do("POST", "/compare", body, id)
	assert.Equal(t, http.StatusOK, w.Code)

	var panel session.ComparisonPanel
	json.Unmarshal(w.Body.Bytes(), &panel)
	assert.Equal(t, "d", panel.CoreDifference)
	assert.Equal(t, session.LeanLeft, panel.A.Lean)
	assert.Equal(t, session.LeanRight, panel.B.Lean)
	assert.Equal(t, "First", panel.A.Title)
}

func TestPostCompareBadInput(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	k := testEntries[0].Key()

	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/compare", `{"a":"`+k+`"}`, id).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/compare", `{"a":"`+k+`","b":"`+k+`"}`, id).Code)
	assert.Equal(t, http.StatusNotFound, s.do("POST", "/compare", `{"a":"`+k+`","b":"missing"}`, id).Code)
}

func TestGetHistory(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	s.do("POST", "/articles/"+testEntries[0].Key()+"/analyze", "", id)
	s.do("POST", "/compare", `{"a":"`+testEntries[0].Key()+`","b":"`+testEntries[1].Key()+`"}`, id)

	// A row that no longer parses is left out.
	err := s.store.Save(context.Background(), store.Record{
		Key: "stale", Kind: "single", EntryID: testEntries[1].ID, Result: "not json", CreatedAt: time.Now(),
	})
	assert.Equal(t, nil, err)

	w := s.do("GET", "/history?limit=5", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var res []HistoryResponse
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, 2, len(res))

	kinds := map[string]HistoryResponse{}
	for _, r := range res {
		kinds[r.Kind] = r
	}
	single := kinds["single"]
	assert.Equal(t, testEntries[0].ID, single.EntryID)
	if single.Analysis == nil {
		t.Fatal("single record should carry its analysis")
	}
	assert.Equal(t, 82, single.Analysis.FactRatio)
	assert.Equal(t, true, single.Comparison == nil)

	cmp := kinds["compare"]
	assert.Equal(t, testEntries[1].ID, cmp.OtherID)
	if cmp.Comparison == nil {
		t.Fatal("compare record should carry its comparison")
	}
	assert.Equal(t, "d", cmp.Comparison.CoreDifference)
	assert.Equal(t, -6, cmp.Comparison.SideA.StanceScore)
	assert.Equal(t, true, cmp.Analysis == nil)
}

func TestGetEntryHistory(t *testing.T) {
	s := newTestServer(t, byKind)
	id := s.load(t)
	a, b := testEntries[0].Key(), testEntries[1].Key()
	s.do("POST", "/articles/"+a+"/analyze", "", id)
	s.do("POST", "/compare", `{"a":"`+a+`","b":"`+b+`"}`, id)

	tests := []struct {
		key  string
		want int
	}{
		{a, 2},
		{b, 1},
	}
	for _, tt := range tests {
		w := s.do("GET", "/articles/"+tt.key+"/history", "", "")
		assert.Equal(t, http.StatusOK, w.Code)

		var res []HistoryResponse
		json.Unmarshal(w.Body.Bytes(), &res)
		assert.Equal(t, tt.want, len(res))
	}

	assert.Equal(t, http.StatusNotFound, s.do("GET", "/articles/missing/history", "", "").Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, byKind)
	req := httptest.NewRequest("OPTIONS", "/articles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
