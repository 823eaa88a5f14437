// Package server exposes the pipeline as a JSON API for web front ends.
// Every pipeline failure is answered with 200 and an unavailable notice;
// only bad input (400) and unknown keys (404) are HTTP errors.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/newslens/internal/brain"
	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/abelbrown/newslens/internal/pipeline"
	"github.com/abelbrown/newslens/internal/prompt"
	"github.com/abelbrown/newslens/internal/session"
	"github.com/abelbrown/newslens/internal/store"
)

// SessionHeader carries the session id in both directions.
const SessionHeader = "X-Session-ID"

// Pipeline is the part of *pipeline.Pipeline the handlers use.
type Pipeline interface {
	Categories() []feeds.Category
	Articles(ctx context.Context, category string) ([]feeds.Entry, error)
	Find(key string) (feeds.Entry, bool)
	Analyze(ctx context.Context, entry feeds.Entry, lang prompt.Language) (*insight.Analysis, error)
	CachedAnalysis(entry feeds.Entry, lang prompt.Language) (*insight.Analysis, bool)
	Compare(ctx context.Context, a, b feeds.Entry, lang prompt.Language) (*insight.Comparison, error)
	Ask(ctx context.Context, thread pipeline.Thread, entry feeds.Entry, lang prompt.Language, question string) (insight.ChatTurn, error)
	History(ctx context.Context, limit int) ([]store.Record, error)
	EntryHistory(ctx context.Context, entryID string) ([]store.Record, error)
}

// Status reports the generation client. *brain.Client satisfies it.
type Status interface {
	Backend() string
	State() brain.State
}

type Handler struct {
	pipeline Pipeline
	sessions *session.Manager
	status   Status
}

func NewHandler(p Pipeline, sessions *session.Manager, status Status) *Handler {
	return &Handler{pipeline: p, sessions: sessions, status: status}
}

// session resolves the caller's state, echoes its id, and applies a ?lang=
// override. It writes a 400 and returns false on a bad language.
func (h *Handler) session(c *gin.Context) (*session.State, bool) {
	id, state := h.sessions.Get(c.GetHeader(SessionHeader))
	c.Header(SessionHeader, id)

	if raw := c.Query("lang"); raw != "" {
		lang, err := prompt.ParseLanguage(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		state.SetLanguage(lang)
	}
	return state, true
}

func (h *Handler) GetHealth(c *gin.Context) {
	res := HealthResponse{Status: "ok", Sessions: h.sessions.Len()}
	if h.status != nil {
		st := h.status.State()
		res.Backend = h.status.Backend()
		res.Phase = st.Phase.String()
		res.Model = st.Model
		if st.Phase == brain.Exhausted {
			res.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetCategories(c *gin.Context) {
	res := []CategoryResponse{}
	for _, cat := range h.pipeline.Categories() {
		res = append(res, CategoryResponse{Name: cat.Name, Feeds: len(cat.Feeds)})
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetArticles(c *gin.Context) {
	state, ok := h.session(c)
	if !ok {
		return
	}

	category := c.Query("category")
	if category == "" {
		category = state.Category()
	}
	if category == "" {
		if cats := h.pipeline.Categories(); len(cats) > 0 {
			category = cats[0].Name
		}
	}

	entries, err := h.pipeline.Articles(c.Request.Context(), category)
	if errors.Is(err, pipeline.ErrUnknownCategory) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state.SetCategory(category)

	lang := state.Language()
	analyses := make(map[string]*insight.Analysis)
	for _, e := range entries {
		if a, ok := h.pipeline.CachedAnalysis(e, lang); ok && state.Expanded(e.Key()) {
			analyses[e.Key()] = a
		}
	}

	page := session.RenderModel(state, entries, session.Results{
		Categories: h.categoryNames(),
		FetchErr:   err,
		Analyses:   analyses,
	})
	c.JSON(http.StatusOK, page)
}

func (h *Handler) PostAnalyze(c *gin.Context) {
	state, ok := h.session(c)
	if !ok {
		return
	}
	entry, ok := h.entry(c)
	if !ok {
		return
	}

	lang := state.Language()
	state.Expand(entry.Key())
	a, err := h.pipeline.Analyze(c.Request.Context(), entry, lang)
	if err != nil {
		logging.Warn("Analyze request degraded", "key", entry.Key(), "error", err)
	}
	c.JSON(http.StatusOK, session.AnalysisCardFor(entry.Key(), a, err, state.Thread(entry.Key()), lang))
}

func (h *Handler) PostChat(c *gin.Context) {
	state, ok := h.session(c)
	if !ok {
		return
	}
	entry, ok := h.entry(c)
	if !ok {
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	lang := state.Language()
	turn, err := h.pipeline.Ask(c.Request.Context(), state, entry, lang, req.Question)
	if errors.Is(err, pipeline.ErrEmptyQuestion) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := ChatResponse{Thread: state.Thread(entry.Key())}
	if err != nil {
		logging.Warn("Chat request degraded", "key", entry.Key(), "error", err)
		res.Unavailable = true
		res.Notice = session.Notice(err, lang)
	} else {
		res.Answer = &turn
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetChat(c *gin.Context) {
	state, ok := h.session(c)
	if !ok {
		return
	}
	entry, ok := h.entry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Thread: state.Thread(entry.Key())})
}

func (h *Handler) PostCompare(c *gin.Context) {
	state, ok := h.session(c)
	if !ok {
		return
	}

	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "two article keys a and b are required"})
		return
	}
	if req.A == req.B {
		c.JSON(http.StatusBadRequest, gin.H{"error": pipeline.ErrSameArticle.Error()})
		return
	}

	a, okA := h.pipeline.Find(req.A)
	b, okB := h.pipeline.Find(req.B)
	if !okA || !okB {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	state.ClearPicks()
	state.Pick(req.A)
	state.Pick(req.B)

	lang := state.Language()
	cmp, err := h.pipeline.Compare(c.Request.Context(), a, b, lang)
	if err != nil {
		logging.Warn("Compare request degraded", "a", req.A, "b", req.B, "error", err)
	}
	c.JSON(http.StatusOK, session.ComparisonPanelFor(a, b, cmp, err, lang))
}

func (h *Handler) GetHistory(c *gin.Context) {
	records, err := h.pipeline.History(c.Request.Context(), getQueryLimit(c))
	if err != nil {
		logging.Error("History query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, historyResponses(records))
}

func (h *Handler) GetEntryHistory(c *gin.Context) {
	entry, ok := h.entry(c)
	if !ok {
		return
	}

	records, err := h.pipeline.EntryHistory(c.Request.Context(), entry.ID)
	if err != nil {
		logging.Error("History query failed", "key", entry.Key(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, historyResponses(records))
}

// historyResponses decodes stored results by kind. Rows whose result no
// longer parses are left out.
func historyResponses(records []store.Record) []HistoryResponse {
	res := make([]HistoryResponse, 0, len(records))
	for _, r := range records {
		item := HistoryResponse{
			Key:       r.Key,
			Kind:      r.Kind,
			EntryID:   r.EntryID,
			OtherID:   r.OtherID,
			Language:  r.Language,
			Model:     r.Model,
			CreatedAt: r.CreatedAt,
		}
		switch prompt.Kind(r.Kind) {
		case prompt.KindSingle:
			item.Analysis = insight.ParseAnalysis(r.Result)
		case prompt.KindCompare:
			item.Comparison = insight.ParseComparison(r.Result)
		}
		if item.Analysis == nil && item.Comparison == nil {
			logging.Warn("Skipping unreadable history record", "key", r.Key, "kind", r.Kind)
			continue
		}
		res = append(res, item)
	}
	return res
}

// entry looks up :key, writing a 404 when it is unknown.
func (h *Handler) entry(c *gin.Context) (feeds.Entry, bool) {
	e, ok := h.pipeline.Find(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return feeds.Entry{}, false
	}
	return e, true
}

func (h *Handler) categoryNames() []string {
	cats := h.pipeline.Categories()
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

func getQueryLimit(c *gin.Context) int {
	const (
		defaultLimit = 20
		maxLimit     = 200
	)

	raw := c.Query("limit")
	if raw == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		logging.Warn("Invalid limit, using default", "value", raw, "default", defaultLimit)
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
