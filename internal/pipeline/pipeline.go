// Package pipeline runs the feed-to-insight flow: fetch entries, build a
// bounded prompt, generate, normalize, and memoize the result.
//
// Every failure comes back as an error value; callers turn it into a
// displayable notice with session.Notice.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/newslens/internal/brain"
	"github.com/abelbrown/newslens/internal/cache"
	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/abelbrown/newslens/internal/normalize"
	"github.com/abelbrown/newslens/internal/prompt"
	"github.com/abelbrown/newslens/internal/store"
)

var (
	// ErrNormalization means the model answered but no JSON object could
	// be salvaged from the answer.
	ErrNormalization = errors.New("model output could not be normalized")

	ErrUnknownCategory = errors.New("unknown category")
	ErrSameArticle     = errors.New("compare needs two different articles")
	ErrEmptyQuestion   = errors.New("question is empty")
)

// Source retrieves entries for a category.
type Source interface {
	FetchCategory(ctx context.Context, cat feeds.Category) ([]feeds.Entry, error)
	Invalidate()
}

// Generator produces raw text for a request. *brain.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, req brain.Request, hint string) (brain.Response, error)
}

// Expander fills in full article text. *fetch.Readability satisfies it.
type Expander interface {
	Expand(ctx context.Context, e feeds.Entry) feeds.Entry
}

// Thread is the per-session chat history Ask reads and appends to.
// *session.State satisfies it.
type Thread interface {
	Thread(key string) []insight.ChatTurn
	AppendChatTurn(key string, turn insight.ChatTurn)
}

// Options configures a Pipeline. Zero values take defaults.
type Options struct {
	Categories    []feeds.Category
	Budget        int
	Temperature   float64
	MaxTokens     int
	ModelHint     string
	CacheCapacity int
	CacheTTL      time.Duration
	Expander      Expander     // optional
	Store         *store.Store // optional
}

// Pipeline is safe for concurrent use by many sessions.
type Pipeline struct {
	categories []feeds.Category
	source     Source
	gen        Generator
	expander   Expander
	store      *store.Store
	builder    *prompt.Builder

	temperature float64
	maxTokens   int
	hint        string

	analyses    *cache.Cache[*insight.Analysis]
	comparisons *cache.Cache[*insight.Comparison]

	mu      sync.RWMutex
	entries map[string]map[string]feeds.Entry // category -> Entry.Key -> entry, latest fetch only
	now     func() time.Time
}

// New creates a Pipeline.
func New(source Source, gen Generator, opts Options) *Pipeline {
	return &Pipeline{
		categories:  opts.Categories,
		source:      source,
		gen:         gen,
		expander:    opts.Expander,
		store:       opts.Store,
		builder:     prompt.NewBuilder(opts.Budget),
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		hint:        opts.ModelHint,
		analyses:    cache.New[*insight.Analysis](opts.CacheCapacity, opts.CacheTTL),
		comparisons: cache.New[*insight.Comparison](opts.CacheCapacity, opts.CacheTTL),
		entries:     make(map[string]map[string]feeds.Entry),
		now:         time.Now,
	}
}

// Categories returns the configured topic tabs.
func (p *Pipeline) Categories() []feeds.Category {
	return p.categories
}

// Articles fetches a category's entries. When some feeds fail the
// successful entries are returned together with the joined error; when all
// fail the slice is empty, never nil.
func (p *Pipeline) Articles(ctx context.Context, category string) ([]feeds.Entry, error) {
	cat, ok := p.category(category)
	if !ok {
		return []feeds.Entry{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	entries, err := p.source.FetchCategory(ctx, cat)
	if entries == nil {
		entries = []feeds.Entry{}
	}
	if err != nil {
		logging.Warn("Category fetch incomplete", "category", category, "entries", len(entries), "error", err)
	}

	// A fetch where every feed failed keeps the previous index so open
	// articles stay addressable.
	if err == nil || len(entries) > 0 {
		index := make(map[string]feeds.Entry, len(entries))
		for _, e := range entries {
			index[e.Key()] = e
		}
		p.mu.Lock()
		p.entries[category] = index
		p.mu.Unlock()
	}

	return entries, err
}

// Refresh drops memoized feeds and fetches the category again.
func (p *Pipeline) Refresh(ctx context.Context, category string) ([]feeds.Entry, error) {
	p.source.Invalidate()
	return p.Articles(ctx, category)
}

// Find returns an entry from the latest fetch of any category by its short
// key. Entries dropped by a newer fetch are no longer found.
func (p *Pipeline) Find(key string) (feeds.Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, index := range p.entries {
		if e, ok := index[key]; ok {
			return e, true
		}
	}
	return feeds.Entry{}, false
}

// Analyze returns the single-article analysis, computing it at most once
// per (entry, language).
func (p *Pipeline) Analyze(ctx context.Context, entry feeds.Entry, lang prompt.Language) (*insight.Analysis, error) {
	req := prompt.Request{Entry: entry, Language: lang, Kind: prompt.KindSingle}
	key := req.Key()

	return p.analyses.GetOrCompute(ctx, key, func(ctx context.Context) (*insight.Analysis, error) {
		if rec, ok := p.stored(ctx, key); ok {
			if a := insight.ParseAnalysis(rec.Result); a != nil {
				logging.Debug("Analysis loaded from history", "entry", entry.ID)
				return a, nil
			}
		}

		req.Entry = p.expand(ctx, entry)
		pr, err := p.builder.Build(req)
		if err != nil {
			return nil, err
		}

		start := p.now()
		resp, err := p.gen.Generate(ctx, p.request(pr), p.hint)
		if err != nil {
			logging.Warn("Analysis generation failed", "entry", entry.ID, "error", err)
			return nil, err
		}

		a := insight.ParseAnalysis(resp.Content)
		if a == nil {
			logging.Warn("Analysis output not normalizable", "entry", entry.ID, "model", resp.Model, "output", preview(resp.Content))
			return nil, fmt.Errorf("%w (model %s)", ErrNormalization, resp.Model)
		}

		logging.Info("Article analyzed", "entry", entry.ID, "model", resp.Model, "fact_ratio", a.FactRatio, "duration", p.now().Sub(start))
		p.save(ctx, store.Record{
			Key:      key,
			Kind:     string(prompt.KindSingle),
			EntryID:  entry.ID,
			Language: string(lang),
			Model:    resp.Model,
			Result:   a.JSON(),
		})
		return a, nil
	})
}

// Compare returns the two-article comparison. Order matters: a is side A.
func (p *Pipeline) Compare(ctx context.Context, a, b feeds.Entry, lang prompt.Language) (*insight.Comparison, error) {
	if a.ID == b.ID {
		return nil, ErrSameArticle
	}
	req := prompt.Request{Entry: a, Other: &b, Language: lang, Kind: prompt.KindCompare}
	key := req.Key()

	return p.comparisons.GetOrCompute(ctx, key, func(ctx context.Context) (*insight.Comparison, error) {
		if rec, ok := p.stored(ctx, key); ok {
			if c := insight.ParseComparison(rec.Result); c != nil {
				return c, nil
			}
		}

		// Expand both articles in parallel; Expand never fails.
		var ea, eb feeds.Entry
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { ea = p.expand(gctx, a); return nil })
		g.Go(func() error { eb = p.expand(gctx, b); return nil })
		_ = g.Wait()

		req.Entry, req.Other = ea, &eb
		pr, err := p.builder.Build(req)
		if err != nil {
			return nil, err
		}

		resp, err := p.gen.Generate(ctx, p.request(pr), p.hint)
		if err != nil {
			logging.Warn("Comparison generation failed", "a", a.ID, "b", b.ID, "error", err)
			return nil, err
		}

		c := insight.ParseComparison(resp.Content)
		if c == nil {
			logging.Warn("Comparison output not normalizable", "a", a.ID, "b", b.ID, "model", resp.Model, "output", preview(resp.Content))
			return nil, fmt.Errorf("%w (model %s)", ErrNormalization, resp.Model)
		}

		logging.Info("Articles compared", "a", a.ID, "b", b.ID, "model", resp.Model)
		p.save(ctx, store.Record{
			Key:      key,
			Kind:     string(prompt.KindCompare),
			EntryID:  a.ID,
			OtherID:  b.ID,
			Language: string(lang),
			Model:    resp.Model,
			Result:   c.JSON(),
		})
		return c, nil
	})
}

// Ask answers a follow-up question about entry. The question and answer
// are appended to the thread only when the answer succeeds. Answers are
// never cached.
func (p *Pipeline) Ask(ctx context.Context, thread Thread, entry feeds.Entry, lang prompt.Language, question string) (insight.ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return insight.ChatTurn{}, ErrEmptyQuestion
	}

	key := entry.Key()
	history := thread.Thread(key)
	pr := p.builder.BuildChat(p.expand(ctx, entry), lang, history, question)

	asked := p.now()
	resp, err := p.gen.Generate(ctx, p.request(pr), p.hint)
	if err != nil {
		logging.Warn("Chat generation failed", "entry", entry.ID, "error", err)
		return insight.ChatTurn{}, err
	}

	answer := insight.ChatTurn{Role: insight.RoleAssistant, Content: strings.TrimSpace(resp.Content), At: p.now()}
	thread.AppendChatTurn(key, insight.ChatTurn{Role: insight.RoleUser, Content: question, At: asked})
	thread.AppendChatTurn(key, answer)
	return answer, nil
}

// History returns recently stored results, newest first. Without a store
// it returns nothing.
func (p *Pipeline) History(ctx context.Context, limit int) ([]store.Record, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.Recent(ctx, limit)
}

// EntryHistory returns every stored result involving entryID, as the
// article or either side of a comparison, newest first.
func (p *Pipeline) EntryHistory(ctx context.Context, entryID string) ([]store.Record, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.ForEntry(ctx, entryID)
}

// CachedAnalysis returns a memoized analysis without generating.
func (p *Pipeline) CachedAnalysis(entry feeds.Entry, lang prompt.Language) (*insight.Analysis, bool) {
	return p.analyses.Get(prompt.Request{Entry: entry, Language: lang, Kind: prompt.KindSingle}.Key())
}

// request converts a prompt into a backend request.
func (p *Pipeline) request(pr prompt.Prompt) brain.Request {
	messages := make([]brain.Message, 0, len(pr.History)+1)
	for _, turn := range pr.History {
		messages = append(messages, brain.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, brain.Message{Role: string(insight.RoleUser), Content: pr.User})
	return brain.Request{
		System:      pr.System,
		Messages:    messages,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		JSON:        pr.JSON,
	}
}

// maxPreviewRunes bounds model output quoted in logs.
const maxPreviewRunes = 200

// preview is the cleaned model output, shortened for a log line.
func preview(raw string) string {
	cleaned := []rune(normalize.Clean(raw))
	if len(cleaned) > maxPreviewRunes {
		return string(cleaned[:maxPreviewRunes]) + "…"
	}
	return string(cleaned)
}

func (p *Pipeline) category(name string) (feeds.Category, bool) {
	for _, c := range p.categories {
		if c.Name == name {
			return c, true
		}
	}
	return feeds.Category{}, false
}

func (p *Pipeline) expand(ctx context.Context, e feeds.Entry) feeds.Entry {
	if p.expander == nil {
		return e
	}
	return p.expander.Expand(ctx, e)
}

func (p *Pipeline) stored(ctx context.Context, key string) (store.Record, bool) {
	if p.store == nil {
		return store.Record{}, false
	}
	rec, found, err := p.store.Get(ctx, key)
	if err != nil {
		logging.Warn("History lookup failed", "error", err)
		return store.Record{}, false
	}
	return rec, found
}

func (p *Pipeline) save(ctx context.Context, rec store.Record) {
	if p.store == nil {
		return
	}
	rec.CreatedAt = p.now()
	if err := p.store.Save(ctx, rec); err != nil {
		logging.Warn("History save failed", "key", rec.Key, "error", err)
	}
}
