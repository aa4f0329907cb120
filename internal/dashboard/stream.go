package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/campusai/portal/internal/models"
)

// Opener opens the upstream event stream.
type Opener interface {
	DashboardStreamURL(email string) string
	Stream(ctx context.Context, streamURL string) (*http.Response, error)
}

// Stream keeps one account's dashboard connected and its State current.
type Stream struct {
	account string
	opener  Opener
	state   *State
	logger  *slog.Logger

	// newBackOff builds the reconnect policy for each Run.
	newBackOff func() backoff.BackOff

	subsMu  sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// NewStream creates a stream for account. It does nothing until Run.
func NewStream(account string, opener Opener, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		account: account,
		opener:  opener,
		state:   NewState(account),
		logger:  logger.With("component", "dashboard", "account", account),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
		subs: make(map[int]chan Snapshot),
	}
}

// Snapshot returns the current dashboard.
func (s *Stream) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. Only the newest snapshot is kept for slow readers.
func (s *Stream) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Stream) Subscribers() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *Stream) notify() {
	snap := s.state.Snapshot()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *Stream) setStatus(status ConnStatus, errMsg string) {
	s.state.SetStatus(status, errMsg)
	s.notify()
}

// Run connects and reconnects with exponential backoff until ctx ends.
func (s *Stream) Run(ctx context.Context) {
	b := s.newBackOff()
	defer s.setStatus(StatusDisconnected, "")

	for {
		s.setStatus(StatusConnecting, "")

		err := s.connectOnce(ctx, b)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("dashboard stream failed", "error", err)
			s.setStatus(StatusError, "connection lost, retrying")
		} else {
			s.logger.Info("dashboard stream closed by backend")
			s.setStatus(StatusDisconnected, "")
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			s.logger.Warn("giving up on dashboard stream")
			return
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connectOnce reads one upstream connection until it ends.
func (s *Stream) connectOnce(ctx context.Context, b backoff.BackOff) error {
	resp, err := s.opener.Stream(ctx, s.opener.DashboardStreamURL(s.account))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b.Reset()
	s.setStatus(StatusConnected, "")
	s.logger.Info("dashboard stream connected")

	err = ReadEvents(resp.Body, func(data []byte) error {
		var ev models.DashboardEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("skipping malformed dashboard event", "error", err)
			return nil
		}
		if err := s.state.Apply(ev); err != nil {
			s.logger.Warn("skipping dashboard event", "type", ev.Type, "error", err)
			return nil
		}
		s.notify()
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
