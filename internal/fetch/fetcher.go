// Package fetch retrieves syndication feeds and turns them into feeds.Entry
// values for the analysis pipeline.
//
// Fetch failures never propagate as faults: callers get an empty slice plus a
// *FeedUnavailable they can surface as a notice. A page reload is the retry.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/httpclient"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// DefaultTTL is how long a fetched feed is served from memory.
const DefaultTTL = 10 * time.Minute

// maxParallelFeeds bounds concurrent GETs within one category refresh.
const maxParallelFeeds = 4

// FeedUnavailable reports a feed that could not be retrieved or parsed.
type FeedUnavailable struct {
	URL    string
	Status int // HTTP status when the server answered, 0 otherwise
	Err    error
}

func (e *FeedUnavailable) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("feed unavailable: %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("feed unavailable: %s: %v", e.URL, e.Err)
}

func (e *FeedUnavailable) Unwrap() error {
	return e.Err
}

type cachedFeed struct {
	entries []feeds.Entry
	fetched time.Time
}

// Fetcher retrieves entries from feeds, memoizing successful results for ttl.
// Thread-safe.
type Fetcher struct {
	client *http.Client
	ttl    time.Duration
	now    func() time.Time
	filter *feeds.Filter // nil keeps everything

	mu    sync.Mutex
	cache map[string]cachedFeed
}

// NewFetcher creates a Fetcher. A zero timeout uses the shared 10s client,
// a zero ttl uses DefaultTTL.
func NewFetcher(timeout, ttl time.Duration) *Fetcher {
	client := httpclient.Default()
	if timeout > 0 {
		client = httpclient.New(timeout)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Fetcher{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		filter: feeds.DefaultFilter(),
		cache:  make(map[string]cachedFeed),
	}
}

// SetFilter replaces the list filter. nil disables filtering.
func (f *Fetcher) SetFilter(filter *feeds.Filter) {
	f.filter = filter
}

// Fetch returns the entries of one feed, tagged with category.
// On failure it returns an empty, non-nil slice and a *FeedUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, feed feeds.Feed, category string) ([]feeds.Entry, error) {
	key := category + "\x00" + feed.URL

	f.mu.Lock()
	if c, ok := f.cache[key]; ok && f.now().Sub(c.fetched) < f.ttl {
		f.mu.Unlock()
		logging.Debug("feed cache hit", "url", feed.URL)
		return c.entries, nil
	}
	f.mu.Unlock()

	entries, err := f.fetch(ctx, feed, category)
	if err != nil {
		logging.Warn("feed unavailable", "url", feed.URL, "error", err)
		return []feeds.Entry{}, err
	}

	f.mu.Lock()
	f.cache[key] = cachedFeed{entries: entries, fetched: f.now()}
	f.mu.Unlock()

	logging.Info("feed fetched", "url", feed.URL, "entries", len(entries))
	return entries, nil
}

func (f *Fetcher) fetch(ctx context.Context, feed feeds.Feed, category string) ([]feeds.Entry, error) {
	if ctx.Err() != nil {
		return nil, &FeedUnavailable{URL: feed.URL, Err: ctx.Err()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, &FeedUnavailable{URL: feed.URL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", httpclient.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FeedUnavailable{URL: feed.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FeedUnavailable{URL: feed.URL, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, &FeedUnavailable{URL: feed.URL, Err: fmt.Errorf("parse feed: %w", err)}
	}

	now := f.now()
	entries := make([]feeds.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		e, ok := convertFeedItem(item, feed, category, now)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FetchCategory fetches every feed of a category in parallel and merges the
// results newest first, de-duplicated by entry ID. Entries from healthy feeds
// are returned even when others fail; the failures are joined into err.
func (f *Fetcher) FetchCategory(ctx context.Context, cat feeds.Category) ([]feeds.Entry, error) {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		all  []feeds.Entry
		errs []error
	)
	g.SetLimit(maxParallelFeeds)

	for _, feed := range cat.Feeds {
		g.Go(func() error {
			entries, err := f.Fetch(ctx, feed, cat.Name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			all = append(all, entries...)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool, len(all))
	merged := make([]feeds.Entry, 0, len(all))
	for _, e := range all {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		merged = append(merged, e)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if f.filter != nil {
		if n := f.filter.BlockedCount(merged); n > 0 {
			logging.Debug("advertorials filtered", "category", cat.Name, "blocked", n)
			merged = f.filter.Apply(merged)
		}
	}

	return merged, errors.Join(errs...)
}

// Invalidate drops every memoized feed.
func (f *Fetcher) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]cachedFeed)
}

// convertFeedItem converts a gofeed.Item to a feeds.Entry.
// Items with neither link nor GUID have no stable identity and are skipped.
func convertFeedItem(item *gofeed.Item, feed feeds.Feed, category string, fetchTime time.Time) (feeds.Entry, bool) {
	id := CanonicalURL(item.Link)
	if id == "" {
		id = strings.TrimSpace(item.GUID)
	}
	if id == "" {
		return feeds.Entry{}, false
	}

	published := fetchTime
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return feeds.Entry{
		ID:          id,
		Title:       PlainText(item.Title),
		Summary:     PlainText(item.Description),
		Content:     PlainText(item.Content),
		Link:        strings.TrimSpace(item.Link),
		Source:      feed.Name,
		Category:    category,
		PublishedAt: published,
	}, true
}

// CanonicalURL normalizes a link for use as an entry ID: trims space,
// lowercases scheme and host, drops the fragment. Unparseable links are
// returned trimmed.
func CanonicalURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
