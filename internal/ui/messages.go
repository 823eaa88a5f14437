// Package ui provides the Bubble Tea TUI for newslens.
package ui

import (
	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/prompt"
)

// ArticlesLoaded is sent when a category fetch finishes.
type ArticlesLoaded struct {
	Category string
	Entries  []feeds.Entry
	Err      error
}

// AnalysisDone is sent when a single-article analysis finishes.
type AnalysisDone struct {
	Key      string
	Language prompt.Language // for stale-check after a language switch
	Analysis *insight.Analysis
	Err      error
}

// ComparisonDone is sent when a two-article comparison finishes.
type ComparisonDone struct {
	A, B       string // entry keys
	Language   prompt.Language
	Comparison *insight.Comparison
	Err        error
}

// ChatAnswered is sent when a follow-up question has been answered.
// The turns are already in the session thread on success.
type ChatAnswered struct {
	Key  string
	Turn insight.ChatTurn
	Err  error
}
