// Package session keeps the logged-in accounts of the portal.
package session

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusai/portal/internal/models"
)

// HeaderName carries the session token on API requests.
const HeaderName = "X-Session-ID"

// MaxSessions limits concurrent sessions to prevent memory exhaustion
const MaxSessions = 256

// SessionMaxAge is how long an idle session is kept before cleanup
const SessionMaxAge = 12 * time.Hour

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// ErrNoSession is returned when a token does not name a live session.
var ErrNoSession = errors.New("no active session")

// Session binds a token to the account that logged in with it.
type Session struct {
	ID           string         `json:"id"`
	Account      models.Account `json:"account"`
	CreatedAt    time.Time      `json:"createdAt"`
	LastAccessed time.Time      `json:"lastAccessed"`
}

// Manager handles logged-in sessions.
type Manager struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int
	logger      *slog.Logger
}

// NewManager creates a session manager holding at most maxSessions sessions.
func NewManager(maxSessions int, logger *slog.Logger) *Manager {
	if maxSessions <= 0 {
		maxSessions = MaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		logger:      logger.With("component", "session"),
	}
}

// Start creates a session for account.
func (m *Manager) Start(account models.Account) Session {
	m.evictIfNeeded()

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		Account:      account,
		CreatedAt:    now,
		LastAccessed: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Info("session started", "session", s.ID[:8], "account", account.Email)
	return *s
}

// Get returns the session and marks it as used.
func (m *Manager) Get(id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	s.LastAccessed = time.Now()
	return *s, nil
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.LastAccessed = time.Now()
	return true
}

// Exists reports whether id names a live session without touching it.
func (m *Manager) Exists(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[id]
	return ok
}

// End removes a session. It reports whether the session existed.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictIfNeeded drops the least recently used sessions when at capacity.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.maxSessions {
		return
	}

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].LastAccessed.Before(m.sessions[ids[j]].LastAccessed)
	})

	toFree := len(m.sessions) - m.maxSessions + 1
	for _, id := range ids[:toFree] {
		delete(m.sessions, id)
		m.logger.Info("evicted session to stay under limit", "session", id[:8])
	}
}

// CleanupOldSessions removes sessions idle for longer than maxAge, but keeps
// sessions that have been accessed within SessionKeepAliveWindow.
// It returns the number of sessions removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	removed := 0
	for id, s := range m.sessions {
		if s.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if s.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			m.logger.Info("cleaned up idle session", "session", id[:8],
				"idle", time.Since(s.LastAccessed).Round(time.Second))
		}
	}
	return removed
}
