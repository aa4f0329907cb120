package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusai/portal/internal/models"
)

func TestSessionManager(t *testing.T) {
	m := NewManager(0, nil)
	account := models.Account{Email: "cs@campus.edu", Name: "Computer Science"}

	s := m.Start(account)
	require.NotEmpty(t, s.ID)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, account, got.Account)

	_, err = m.Get("unknown")
	assert.ErrorIs(t, err, ErrNoSession)

	assert.True(t, m.TouchSession(s.ID))
	assert.True(t, m.Exists(s.ID))
	assert.True(t, m.End(s.ID))
	assert.False(t, m.End(s.ID))
	assert.False(t, m.TouchSession(s.ID))
	assert.False(t, m.Exists(s.ID))
	assert.Equal(t, 0, m.Count())
}

func TestSessionManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m := NewManager(2, nil)

	first := m.Start(models.Account{Email: "a@campus.edu"})
	second := m.Start(models.Account{Email: "b@campus.edu"})

	// Make the first session the most recently used.
	m.mu.Lock()
	m.sessions[second.ID].LastAccessed = time.Now().Add(-time.Minute)
	m.mu.Unlock()
	m.TouchSession(first.ID)

	third := m.Start(models.Account{Email: "c@campus.edu"})

	assert.Equal(t, 2, m.Count())
	_, err := m.Get(second.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Get(first.ID)
	assert.NoError(t, err)
	_, err = m.Get(third.ID)
	assert.NoError(t, err)
}

func TestCleanupOldSessions(t *testing.T) {
	m := NewManager(0, nil)

	idle := m.Start(models.Account{Email: "idle@campus.edu"})
	recent := m.Start(models.Account{Email: "recent@campus.edu"})

	m.mu.Lock()
	m.sessions[idle.ID].LastAccessed = time.Now().Add(-2 * time.Hour)
	m.mu.Unlock()

	removed := m.CleanupOldSessions(time.Hour)
	assert.Equal(t, 1, removed)

	_, err := m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = m.Get(recent.ID)
	assert.NoError(t, err)
}
