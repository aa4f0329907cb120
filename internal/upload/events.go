package upload

import (
	"time"

	"github.com/campusai/portal/internal/models"
)

// EventType identifies a queue event.
type EventType string

const (
	EventItemAdded     EventType = "item:added"
	EventItemUpdated   EventType = "item:updated"
	EventItemRemoved   EventType = "item:removed"
	EventQueueStarted  EventType = "queue:started"
	EventQueueComplete EventType = "queue:complete"
)

// Event is published for every queue change.
type Event struct {
	Type    EventType         `json:"type" msgpack:"type"`
	Item    *models.QueueItem `json:"item,omitempty" msgpack:"item,omitempty"`
	Summary *Summary          `json:"summary,omitempty" msgpack:"summary,omitempty"`
	Time    time.Time         `json:"time" msgpack:"time"`
}

// Summary describes one finished processing run.
type Summary struct {
	Account    string    `json:"account" msgpack:"account"`
	Total      int       `json:"total" msgpack:"total"`
	Completed  int       `json:"completed" msgpack:"completed"`
	Failed     int       `json:"failed" msgpack:"failed"`
	Skipped    int       `json:"skipped" msgpack:"skipped"` // Left pending because the run was cancelled
	StartedAt  time.Time `json:"startedAt" msgpack:"startedAt"`
	FinishedAt time.Time `json:"finishedAt" msgpack:"finishedAt"`
}

// Duration returns how long the run took.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// subscriberBuffer is the per-subscriber channel capacity. Slow subscribers
// miss events rather than stall processing.
const subscriberBuffer = 64

// Subscribe returns a channel of queue events and a function that stops the
// subscription and closes the channel.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subsMu.Unlock()

	cancel := func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (m *Manager) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for id, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.logger.Debug("dropping event for slow subscriber", "subscriber", id, "event", ev.Type)
		}
	}
}
