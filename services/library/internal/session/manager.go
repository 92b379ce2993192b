// Package session keeps one library browser per dashboard session. The
// HTTP surface is stateless, so filter, pagination, and view-recording
// state lives here, keyed by the caller's bearer token and evicted after
// an idle TTL.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chessacademy/services/library/internal/app"
)

// Session is one dashboard session's browsing state.
type Session struct {
	ID      string
	Browser *app.Browser
	Bridge  *app.Bridge

	lastSeen time.Time
}

// Factory builds the per-session browser and bridge. The session id is
// used to scope the transient hand-off store.
type Factory func(token, sessionID string) (*app.Browser, *app.Bridge)

// Manager owns the live sessions and their idle eviction.
type Manager struct {
	factory Factory
	ttl     time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	done chan struct{}
	once sync.Once
}

// NewManager builds a manager; sessions idle longer than ttl are evicted
// by the sweep loop.
func NewManager(factory Factory, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
}

// Get returns the session for token, creating it on first use, and marks
// it live.
func (m *Manager) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		id := uuid.NewString()
		browser, bridge := m.factory(token, id)
		s = &Session{ID: id, Browser: browser, Bridge: bridge}
		m.sessions[token] = s
	}
	s.lastSeen = time.Now()
	return s
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Start runs the idle sweep until Stop is called.
func (m *Manager) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.done:
				return
			case now := <-ticker.C:
				m.sweep(now)
			}
		}
	}()
}

// Stop halts the sweep loop and drops all sessions.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.done) })
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		s.Browser.Close()
		delete(m.sessions, token)
	}
}

func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			s.Browser.Close()
			delete(m.sessions, token)
			slog.Debug("session evicted", "session_id", s.ID)
		}
	}
}
