// Package session holds per-user view state and maps pipeline results to
// display-ready view models. It has no business logic beyond field mapping
// and threshold bucketing.
package session

import (
	"slices"
	"sync"

	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/prompt"
)

// MaxPicks is how many articles a comparison takes.
const MaxPicks = 2

// State is one user's view state. It is owned by the caller (one per TUI
// run, one per HTTP session) and safe for concurrent use.
type State struct {
	mu       sync.Mutex
	threads  map[string][]insight.ChatTurn // by entry key
	expanded map[string]bool
	picks    []string
	category string
	language prompt.Language
}

// NewState creates an empty state.
func NewState(lang prompt.Language, category string) *State {
	return &State{
		threads:  make(map[string][]insight.ChatTurn),
		expanded: make(map[string]bool),
		category: category,
		language: lang,
	}
}

// AppendChatTurn adds a turn to the article's thread. Threads only grow.
func (s *State) AppendChatTurn(key string, turn insight.ChatTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[key] = append(s.threads[key], turn)
}

// Thread returns a copy of the article's chat turns.
func (s *State) Thread(key string) []insight.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.threads[key])
}

// Toggle flips the analysis panel for key and reports whether it is now open.
func (s *State) Toggle(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := !s.expanded[key]
	if open {
		s.expanded[key] = true
	} else {
		delete(s.expanded, key)
	}
	return open
}

// Expand opens the analysis panel for key.
func (s *State) Expand(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded[key] = true
}

// Expanded reports whether the analysis panel for key is open.
func (s *State) Expanded(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[key]
}

// Pick adds key to the comparison picks, or removes it when already
// picked. A third pick drops the oldest.
func (s *State) Pick(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.picks, key); i >= 0 {
		s.picks = slices.Delete(s.picks, i, i+1)
		return
	}
	s.picks = append(s.picks, key)
	if len(s.picks) > MaxPicks {
		s.picks = slices.Clone(s.picks[len(s.picks)-MaxPicks:])
	}
}

// Picks returns the picked keys, oldest first.
func (s *State) Picks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.picks)
}

// ClearPicks empties the comparison picks.
func (s *State) ClearPicks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picks = nil
}

// SetCategory selects a topic tab. Picks and open panels belong to the
// previous list, so they are cleared.
func (s *State) SetCategory(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.category {
		return
	}
	s.category = name
	s.picks = nil
	clear(s.expanded)
}

func (s *State) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

func (s *State) SetLanguage(lang prompt.Language) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
}

func (s *State) Language() prompt.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}
