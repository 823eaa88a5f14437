package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/go-shiori/go-readability"
)

const testRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <item>
      <title>Article 1</title>
      <link>http://Example.com/article1#comments</link>
      <description>&lt;p&gt;First &lt;b&gt;article&lt;/b&gt;&lt;/p&gt;</description>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Article 2</title>
      <link>http://example.com/article2</link>
      <description>Second article</description>
      <pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func rssServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch(t *testing.T) {
	server := rssServer(t, testRSS, nil)

	f := NewFetcher(5*time.Second, time.Minute)
	entries, err := f.Fetch(context.Background(), feeds.Feed{Name: "Test Feed", URL: server.URL}, "politics")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ID != "http://example.com/article1" {
		t.Errorf("expected canonical ID, got %q", first.ID)
	}
	if first.Summary != "First article" {
		t.Errorf("expected HTML stripped summary, got %q", first.Summary)
	}
	if first.Source != "Test Feed" || first.Category != "politics" {
		t.Errorf("unexpected source/category: %q/%q", first.Source, first.Category)
	}
	if !first.PublishedAt.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected published time: %v", first.PublishedAt)
	}
}

func TestFetchUnreachable(t *testing.T) {
	f := NewFetcher(time.Second, time.Minute)
	entries, err := f.Fetch(context.Background(), feeds.Feed{URL: "http://localhost:99999/nonexistent"}, "x")

	var unavailable *FeedUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected FeedUnavailable, got %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestFetch404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(time.Second, time.Minute)
	entries, err := f.Fetch(context.Background(), feeds.Feed{URL: server.URL}, "x")

	var unavailable *FeedUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected FeedUnavailable, got %v", err)
	}
	if unavailable.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", unavailable.Status)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestFetchInvalidXML(t *testing.T) {
	server := rssServer(t, "not valid xml", nil)

	f := NewFetcher(time.Second, time.Minute)
	_, err := f.Fetch(context.Background(), feeds.Feed{URL: server.URL}, "x")
	if err == nil {
		t.Error("expected error for invalid XML")
	}
}

func TestFetchMemoizesWithinTTL(t *testing.T) {
	var hits atomic.Int32
	server := rssServer(t, testRSS, &hits)

	f := NewFetcher(time.Second, 10*time.Minute)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return clock }

	feed := feeds.Feed{URL: server.URL}
	ctx := context.Background()

	f.Fetch(ctx, feed, "x")
	f.Fetch(ctx, feed, "x")
	if hits.Load() != 1 {
		t.Fatalf("expected 1 request within TTL, got %d", hits.Load())
	}

	clock = clock.Add(11 * time.Minute)
	f.Fetch(ctx, feed, "x")
	if hits.Load() != 2 {
		t.Errorf("expected refetch after TTL, got %d requests", hits.Load())
	}
}

func TestFetchDoesNotMemoizeFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(time.Second, time.Minute)
	feed := feeds.Feed{URL: server.URL}
	f.Fetch(context.Background(), feed, "x")
	f.Fetch(context.Background(), feed, "x")

	if hits.Load() != 2 {
		t.Errorf("failures should not be cached, got %d requests", hits.Load())
	}
}

func TestFetchCategoryPartialFailure(t *testing.T) {
	good := rssServer(t, testRSS, nil)
	dup := rssServer(t, testRSS, nil)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	f := NewFetcher(time.Second, time.Minute)
	cat := feeds.Category{
		Name: "politics",
		Feeds: []feeds.Feed{
			{Name: "good", URL: good.URL},
			{Name: "dup", URL: dup.URL},
			{Name: "bad", URL: bad.URL},
		},
	}

	entries, err := f.FetchCategory(context.Background(), cat)
	if err == nil {
		t.Error("expected joined error for failing feed")
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 de-duplicated entries, got %d", len(entries))
	}
	if !entries[0].PublishedAt.After(entries[1].PublishedAt) {
		t.Error("entries should be sorted newest first")
	}
}

func TestFetchCategoryFiltersAdvertorials(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>국회 본회의</title><link>http://a.kr/1</link><pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate></item>
<item><title>[광고] 특가 세일</title><link>http://a.kr/2</link><pubDate>Mon, 01 Jan 2024 11:00:00 GMT</pubDate></item>
</channel></rss>`
	server := rssServer(t, rss, nil)
	cat := feeds.Category{Name: "politics", Feeds: []feeds.Feed{{Name: "a", URL: server.URL}}}

	f := NewFetcher(time.Second, time.Minute)
	entries, err := f.FetchCategory(context.Background(), cat)
	if err != nil {
		t.Fatalf("FetchCategory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "국회 본회의" {
		t.Errorf("advertorial should be filtered, got %+v", entries)
	}

	f = NewFetcher(time.Second, time.Minute)
	f.SetFilter(nil)
	entries, _ = f.FetchCategory(context.Background(), cat)
	if len(entries) != 2 {
		t.Errorf("without a filter every entry is kept, got %d", len(entries))
	}
}

func TestFetchAcceptsAny2xx(t *testing.T) {
	tests := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusNonAuthoritativeInfo, false},
		{http.StatusPartialContent, false},
		{http.StatusMultipleChoices, true},
		{http.StatusNotFound, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/rss+xml")
				w.WriteHeader(tt.status)
				w.Write([]byte(testRSS))
			}))
			defer server.Close()

			f := NewFetcher(time.Second, time.Minute)
			entries, err := f.Fetch(context.Background(), feeds.Feed{URL: server.URL}, "x")
			if tt.wantErr {
				var unavailable *FeedUnavailable
				if !errors.As(err, &unavailable) || unavailable.Status != tt.status {
					t.Errorf("Fetch() error = %v, want FeedUnavailable with status %d", err, tt.status)
				}
				return
			}
			if err != nil || len(entries) != 2 {
				t.Errorf("Fetch() = %d entries, %v; want 2 entries", len(entries), err)
			}
		})
	}
}

func TestConvertSkipsItemsWithoutIdentity(t *testing.T) {
	rss := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>No link</title></item>
<item><title>Has guid</title><guid>urn:story:42</guid></item>
</channel></rss>`
	server := rssServer(t, rss, nil)

	f := NewFetcher(time.Second, time.Minute)
	entries, err := f.Fetch(context.Background(), feeds.Feed{URL: server.URL}, "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "urn:story:42" {
		t.Errorf("expected only the GUID entry, got %+v", entries)
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"  https://Example.COM/a?id=1#top ", "https://example.com/a?id=1"},
		{"HTTP://news.example.com/x", "http://news.example.com/x"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := CanonicalURL(tt.input); got != tt.expected {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"plain   text\n here", "plain text here"},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<div>한국어 <i>기사</i></div>", "한국어 기사"},
	}
	for _, tt := range tests {
		if got := PlainText(tt.input); got != tt.expected {
			t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestReadabilityExpand(t *testing.T) {
	r := NewReadability(time.Second)
	var calls int
	r.fromURL = func(pageURL string, timeout time.Duration) (readability.Article, error) {
		calls++
		return readability.Article{TextContent: "A much longer body extracted from the article page."}, nil
	}

	short := feeds.Entry{ID: "a", Link: "https://example.com/a", Summary: "teaser"}
	got := r.Expand(context.Background(), short)
	if got.Content == "" {
		t.Fatal("expected content to be filled")
	}
	if short.Content != "" {
		t.Error("Expand must not mutate its argument")
	}

	r.MinRunes = 3
	r.Expand(context.Background(), short)
	if calls != 1 {
		t.Errorf("entry above threshold should not be fetched, calls=%d", calls)
	}
}

func TestReadabilityExpandFailureKeepsEntry(t *testing.T) {
	r := NewReadability(time.Second)
	r.fromURL = func(pageURL string, timeout time.Duration) (readability.Article, error) {
		return readability.Article{}, errors.New("boom")
	}

	e := feeds.Entry{ID: "a", Link: "https://example.com/a", Summary: "teaser"}
	if got := r.Expand(context.Background(), e); got != e {
		t.Errorf("expected unchanged entry, got %+v", got)
	}
}
