// Package dashboard mirrors the remote dashboard stream for one account.
package dashboard

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/campusai/portal/internal/models"
)

// ConnStatus is the state of the upstream connection.
type ConnStatus string

const (
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
	StatusDisconnected ConnStatus = "disconnected"
	StatusError        ConnStatus = "error"
)

// Snapshot is a point-in-time copy of the dashboard.
type Snapshot struct {
	Account   string                   `json:"account"`
	Status    ConnStatus               `json:"connectionStatus"`
	Error     string                   `json:"error,omitempty"`
	Counts    *models.Counts           `json:"counts"`
	Queries   []models.Query           `json:"queries"`
	Uploads   *models.DashboardUploads `json:"uploads"`
	Feedbacks []models.Feedback        `json:"feedbacks"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// State accumulates dashboard events.
type State struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewState creates an empty, disconnected state.
func NewState(account string) *State {
	return &State{snap: Snapshot{
		Account:   account,
		Status:    StatusDisconnected,
		Queries:   []models.Query{},
		Feedbacks: []models.Feedback{},
	}}
}

// Apply folds one event into the state. An initial event replaces everything.
// An update replaces the fields it carries and appends its new queries.
// Unknown event types are ignored.
func (s *State) Apply(ev models.DashboardEvent) error {
	switch ev.Type {
	case models.DashboardEventInitial:
		var data models.DashboardInitial
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("decode initial event: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		counts := data.Counts
		uploads := data.Uploads
		s.snap.Counts = &counts
		s.snap.Uploads = &uploads
		s.snap.Queries = append([]models.Query{}, data.RecentQueries...)
		s.snap.Feedbacks = append([]models.Feedback{}, data.TopFeedbacks...)
		s.snap.UpdatedAt = time.Now()

	case models.DashboardEventUpdate:
		var data models.DashboardUpdate
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return fmt.Errorf("decode update event: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if data.Counts != nil {
			s.snap.Counts = data.Counts
		}
		if data.Uploads != nil {
			s.snap.Uploads = data.Uploads
		}
		if data.TopFeedbacks != nil {
			s.snap.Feedbacks = append([]models.Feedback{}, data.TopFeedbacks...)
		}
		if len(data.NewQueries) > 0 {
			s.snap.Queries = append(s.snap.Queries, data.NewQueries...)
		}
		s.snap.UpdatedAt = time.Now()
	}
	return nil
}

// SetStatus records the connection status and, for errors, a message.
func (s *State) SetStatus(status ConnStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Status = status
	s.snap.Error = errMsg
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	if s.snap.Counts != nil {
		c := *s.snap.Counts
		out.Counts = &c
	}
	if s.snap.Uploads != nil {
		u := models.DashboardUploads{
			Notice:  append([]string(nil), s.snap.Uploads.Notice...),
			FAQ:     append([]string(nil), s.snap.Uploads.FAQ...),
			ImpData: append([]string(nil), s.snap.Uploads.ImpData...),
		}
		out.Uploads = &u
	}
	out.Queries = append([]models.Query{}, s.snap.Queries...)
	out.Feedbacks = append([]models.Feedback{}, s.snap.Feedbacks...)
	return out
}
