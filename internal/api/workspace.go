// workspace.go - Per-session upload queues
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/campusai/portal/internal/models"
	"github.com/campusai/portal/internal/upload"
)

// QueueFactory builds a fresh queue manager. onComplete must be passed to
// upload.WithOnComplete.
type QueueFactory func(onComplete func(upload.Summary)) *upload.Manager

// ListingFetcher returns the account's uploaded documents.
type ListingFetcher interface {
	GetUploads(ctx context.Context, email string) (*models.UploadListing, error)
}

// Workspace is the upload queue and active category of one session.
type Workspace struct {
	SessionID string
	Account   models.Account
	Queue     *upload.Manager
	Category  *upload.CategorySelector

	ctx    context.Context
	cancel context.CancelFunc

	listings ListingFetcher
	logger   *slog.Logger

	mu        sync.Mutex
	uploads   *models.UploadListing
	refreshed time.Time
	watchers  map[int]chan *models.UploadListing
	nextWatch int
}

// Uploads returns the listing fetched after the last processing run, if any.
func (w *Workspace) Uploads() (*models.UploadListing, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uploads, w.refreshed
}

// WatchUploads returns a channel receiving every refreshed listing.
func (w *Workspace) WatchUploads() (<-chan *models.UploadListing, func()) {
	ch := make(chan *models.UploadListing, 1)

	w.mu.Lock()
	id := w.nextWatch
	w.nextWatch++
	w.watchers[id] = ch
	w.mu.Unlock()

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if c, ok := w.watchers[id]; ok {
			delete(w.watchers, id)
			close(c)
		}
	}
}

// StartProcessing runs the queue in the background for the session account.
// It returns upload.ErrAlreadyProcessing if a run is active.
func (w *Workspace) StartProcessing() error {
	return w.Queue.Start(w.ctx, w.Account.Email, w.Category.Current, func(_ upload.Summary, err error) {
		if err != nil {
			w.logger.Warn("processing stopped", "error", err)
		}
	})
}

// refreshUploads runs after each processing run.
func (w *Workspace) refreshUploads(summary upload.Summary) {
	if w.listings == nil || summary.Completed == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), 30*time.Second)
	defer cancel()

	listing, err := w.listings.GetUploads(ctx, w.Account.Email)
	if err != nil {
		w.logger.Warn("failed to refresh uploads listing", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.uploads = listing
	w.refreshed = time.Now()
	for _, ch := range w.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- listing
	}
}

// Workspaces holds one Workspace per session.
type Workspaces struct {
	newQueue QueueFactory
	listings ListingFetcher
	logger   *slog.Logger

	mu     sync.Mutex
	spaces map[string]*Workspace
	ctx    context.Context
}

// NewWorkspaces creates an empty set. Background runs stop when ctx ends.
func NewWorkspaces(ctx context.Context, newQueue QueueFactory, listings ListingFetcher, logger *slog.Logger) *Workspaces {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspaces{
		newQueue: newQueue,
		listings: listings,
		logger:   logger.With("component", "workspace"),
		spaces:   make(map[string]*Workspace),
		ctx:      ctx,
	}
}

// Get returns the session's workspace, creating it on first use.
func (ws *Workspaces) Get(sessionID string, account models.Account) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if w, ok := ws.spaces[sessionID]; ok {
		return w
	}

	ctx, cancel := context.WithCancel(ws.ctx)
	w := &Workspace{
		SessionID: sessionID,
		Account:   account,
		Category:  upload.NewCategorySelector(),
		ctx:       ctx,
		cancel:    cancel,
		listings:  ws.listings,
		logger:    ws.logger.With("account", account.Email),
		watchers:  make(map[int]chan *models.UploadListing),
	}
	w.Queue = ws.newQueue(w.refreshUploads)
	ws.spaces[sessionID] = w
	return w
}

// Drop cancels any run of the session's workspace and forgets it.
func (ws *Workspaces) Drop(sessionID string) {
	ws.mu.Lock()
	w, ok := ws.spaces[sessionID]
	delete(ws.spaces, sessionID)
	ws.mu.Unlock()

	if ok {
		w.cancel()
	}
}

// Prune drops the workspaces of sessions that are no longer alive.
func (ws *Workspaces) Prune(alive func(sessionID string) bool) int {
	ws.mu.Lock()
	var dead []string
	for id := range ws.spaces {
		if !alive(id) {
			dead = append(dead, id)
		}
	}
	ws.mu.Unlock()

	for _, id := range dead {
		ws.Drop(id)
	}
	return len(dead)
}

// Len returns the number of workspaces.
func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.spaces)
}
