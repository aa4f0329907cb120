package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type hubEntry struct {
	stream   *Stream
	cancel   context.CancelFunc
	done     chan struct{}
	lastUsed time.Time
}

// Hub runs at most one upstream Stream per account.
type Hub struct {
	opener Opener
	logger *slog.Logger

	mu      sync.Mutex
	streams map[string]*hubEntry
	ctx     context.Context
	stop    context.CancelFunc
}

// NewHub creates a hub. Streams stop when ctx ends or Close is called.
func NewHub(ctx context.Context, opener Opener, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, stop := context.WithCancel(ctx)
	return &Hub{
		opener:  opener,
		logger:  logger,
		streams: make(map[string]*hubEntry),
		ctx:     ctx,
		stop:    stop,
	}
}

// Get returns the account's stream, starting it if needed.
func (h *Hub) Get(account string) *Stream {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.streams[account]; ok {
		e.lastUsed = time.Now()
		return e.stream
	}

	ctx, cancel := context.WithCancel(h.ctx)
	e := &hubEntry{
		stream:   NewStream(account, h.opener, h.logger),
		cancel:   cancel,
		done:     make(chan struct{}),
		lastUsed: time.Now(),
	}
	h.streams[account] = e

	go func() {
		defer close(e.done)
		e.stream.Run(ctx)
	}()
	return e.stream
}

// Stop disconnects the account's stream, if any.
func (h *Hub) Stop(account string) {
	h.mu.Lock()
	e, ok := h.streams[account]
	if ok {
		delete(h.streams, account)
	}
	h.mu.Unlock()

	if ok {
		e.cancel()
		<-e.done
	}
}

// CleanupIdle stops streams nobody has subscribed to or read for maxIdle.
func (h *Hub) CleanupIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	h.mu.Lock()
	var idle []string
	for account, e := range h.streams {
		if e.stream.Subscribers() == 0 && e.lastUsed.Before(cutoff) {
			idle = append(idle, account)
		}
	}
	h.mu.Unlock()

	for _, account := range idle {
		h.Stop(account)
		h.logger.Info("stopped idle dashboard stream", "account", account)
	}
	return len(idle)
}

// Len returns the number of running streams.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// Close stops every stream and waits for them to exit.
func (h *Hub) Close() {
	h.stop()

	h.mu.Lock()
	entries := make([]*hubEntry, 0, len(h.streams))
	for account, e := range h.streams {
		entries = append(entries, e)
		delete(h.streams, account)
	}
	h.mu.Unlock()

	for _, e := range entries {
		<-e.done
	}
}
