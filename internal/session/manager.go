package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/newslens/internal/prompt"
)

// Manager owns the States of the HTTP surface, keyed by session id.
// Sessions idle longer than the configured duration are dropped.
type Manager struct {
	idle     time.Duration
	language prompt.Language
	category string
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*managed
}

type managed struct {
	state *State
	seen  time.Time
}

// NewManager creates a Manager. idle <= 0 keeps sessions forever.
func NewManager(idle time.Duration, lang prompt.Language, category string) *Manager {
	return &Manager{
		idle:     idle,
		language: lang,
		category: category,
		now:      time.Now,
		sessions: make(map[string]*managed),
	}
}

// Get returns the session for id, creating a new one (with a new id) when
// id is empty, malformed, unknown or expired.
func (m *Manager) Get(id string) (string, *State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	if _, err := uuid.Parse(id); err == nil {
		if s, ok := m.sessions[id]; ok {
			s.seen = now
			return id, s.state
		}
	}

	id = uuid.NewString()
	s := &managed{state: NewState(m.language, m.category), seen: now}
	m.sessions[id] = s
	return id, s.state
}

// Sweep drops idle sessions and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *Manager) sweepLocked(now time.Time) int {
	if m.idle <= 0 {
		return 0
	}
	n := 0
	for id, s := range m.sessions {
		if now.Sub(s.seen) > m.idle {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
