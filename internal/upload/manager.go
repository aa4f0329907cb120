package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/campusai/portal/internal/models"
)

var (
	// ErrProcessing is returned by queue edits while a run is active.
	ErrProcessing = errors.New("queue is processing")
	// ErrAlreadyProcessing is returned by Process while another run is active.
	ErrAlreadyProcessing = errors.New("queue is already processing")
	// ErrItemNotFound is returned for unknown item ids.
	ErrItemNotFound = errors.New("queue item not found")
)

// Extractor converts a named file into text.
type Extractor interface {
	Extract(ctx context.Context, fileName string, data []byte) (string, error)
}

// Uploader delivers converted text to the remote backend.
type Uploader interface {
	UploadFile(ctx context.Context, target models.UploadTarget) error
}

// Recorder stores the outcome of processed items.
type Recorder interface {
	Record(ctx context.Context, entry models.HistoryEntry) error
}

// EnqueueResult reports what happened to one offered file.
type EnqueueResult struct {
	Name    string            `json:"name" msgpack:"name"`
	Verdict Verdict           `json:"verdict" msgpack:"verdict"`
	Item    *models.QueueItem `json:"item,omitempty" msgpack:"item,omitempty"`
}

// Manager owns the upload queue and drives items through extraction and upload.
type Manager struct {
	items      []*models.QueueItem
	mu         sync.RWMutex
	processing bool
	run        *semaphore.Weighted

	validator      *Validator
	extractor      Extractor
	uploader       Uploader
	recorder       Recorder
	extractTimeout time.Duration
	onComplete     func(Summary)
	logger         *slog.Logger

	subs    map[int]chan Event
	subsMu  sync.Mutex
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithValidator replaces the default validator.
func WithValidator(v *Validator) Option {
	return func(m *Manager) { m.validator = v }
}

// WithRecorder records every processed item.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithExtractTimeout bounds the extraction stage of each item.
func WithExtractTimeout(d time.Duration) Option {
	return func(m *Manager) { m.extractTimeout = d }
}

// WithOnComplete registers a hook that runs after every finished run.
func WithOnComplete(fn func(Summary)) Option {
	return func(m *Manager) { m.onComplete = fn }
}

// WithLogger sets the manager logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a new upload queue manager.
func NewManager(extractor Extractor, uploader Uploader, opts ...Option) *Manager {
	m := &Manager{
		run:       semaphore.NewWeighted(1),
		validator: NewValidator(nil),
		extractor: extractor,
		uploader:  uploader,
		logger:    slog.Default(),
		subs:      make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "queue")
	return m
}

// Enqueue validates each file and appends the accepted ones as pending items.
// A file with the same name and size as a queued item is a duplicate.
// Rejected files leave the queue untouched.
func (m *Manager) Enqueue(files ...models.SourceFile) []EnqueueResult {
	results := make([]EnqueueResult, 0, len(files))

	for _, f := range files {
		res := EnqueueResult{Name: f.Name, Verdict: m.validator.Validate(f.Name)}
		if !res.Verdict.Accepted {
			m.logger.Debug("file rejected", "file", f.Name, "reason", res.Verdict.Reason)
			results = append(results, res)
			continue
		}

		if f.Size == 0 && len(f.Data) > 0 {
			f.Size = int64(len(f.Data))
		}

		m.mu.Lock()
		if m.hasDuplicateLocked(f) {
			m.mu.Unlock()
			res.Verdict = Verdict{Reason: ReasonDuplicate}
			m.logger.Debug("file rejected", "file", f.Name, "reason", res.Verdict.Reason)
			results = append(results, res)
			continue
		}
		item := models.NewQueueItem(uuid.New().String(), f)
		m.items = append(m.items, item)
		snapshot := *item
		m.mu.Unlock()

		m.logger.Info("file queued", "item", shortID(item.ID), "file", f.Name, "size", f.Size)
		m.publish(Event{Type: EventItemAdded, Item: &snapshot})

		res.Item = &snapshot
		results = append(results, res)
	}
	return results
}

func (m *Manager) hasDuplicateLocked(f models.SourceFile) bool {
	for _, it := range m.items {
		if it.File.Name == f.Name && it.File.Size == f.Size {
			return true
		}
	}
	return false
}

// Items returns copies of all items in queue order.
func (m *Manager) Items() []models.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.QueueItem, len(m.items))
	for i, it := range m.items {
		out[i] = *it
	}
	return out
}

// Get returns a copy of one item.
func (m *Manager) Get(id string) (models.QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, it := range m.items {
		if it.ID == id {
			return *it, nil
		}
	}
	return models.QueueItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// IsProcessing reports whether a run is active.
func (m *Manager) IsProcessing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processing
}

// Remove deletes an item. Not allowed while a run is active.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	if m.processing {
		m.mu.Unlock()
		return ErrProcessing
	}

	idx := -1
	for i, it := range m.items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	removed := *m.items[idx]
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.mu.Unlock()

	m.logger.Info("item removed", "item", shortID(id), "file", removed.File.Name)
	m.publish(Event{Type: EventItemRemoved, Item: &removed})
	return nil
}

// ClearCompleted removes every completed item and returns how many went.
// Not allowed while a run is active.
func (m *Manager) ClearCompleted() (int, error) {
	m.mu.Lock()
	if m.processing {
		m.mu.Unlock()
		return 0, ErrProcessing
	}

	var removed []models.QueueItem
	kept := m.items[:0]
	for _, it := range m.items {
		if it.Status == models.ItemStatusCompleted {
			removed = append(removed, *it)
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(m.items); i++ {
		m.items[i] = nil
	}
	m.items = kept
	m.mu.Unlock()

	for i := range removed {
		m.publish(Event{Type: EventItemRemoved, Item: &removed[i]})
	}
	if len(removed) > 0 {
		m.logger.Info("completed items cleared", "count", len(removed))
	}
	return len(removed), nil
}

// Process runs every item that is pending right now, one at a time, for account.
// category is resolved when each item starts. A failing item is marked error
// and the run continues. Items queued during the run wait for the next one.
// If ctx is cancelled the remaining items stay pending.
func (m *Manager) Process(ctx context.Context, account string, category CategoryFunc) (Summary, error) {
	if !m.run.TryAcquire(1) {
		return Summary{}, ErrAlreadyProcessing
	}
	defer m.run.Release(1)

	return m.runPending(ctx, account, category, m.beginRun())
}

// Start is Process in the background. The run has begun when Start returns
// nil; done, if set, receives its outcome.
func (m *Manager) Start(ctx context.Context, account string, category CategoryFunc, done func(Summary, error)) error {
	if !m.run.TryAcquire(1) {
		return ErrAlreadyProcessing
	}
	pending := m.beginRun()

	go func() {
		defer m.run.Release(1)
		summary, err := m.runPending(ctx, account, category, pending)
		if done != nil {
			done(summary, err)
		}
	}()
	return nil
}

// beginRun marks the queue busy and snapshots the pending ids. The caller
// must hold the run semaphore.
func (m *Manager) beginRun() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processing = true
	var pending []string
	for _, it := range m.items {
		if it.Status == models.ItemStatusPending {
			pending = append(pending, it.ID)
		}
	}
	return pending
}

func (m *Manager) runPending(ctx context.Context, account string, category CategoryFunc, pending []string) (Summary, error) {
	if category == nil {
		category = Fixed(models.CategoryNotice)
	}

	defer func() {
		m.mu.Lock()
		m.processing = false
		m.mu.Unlock()
	}()

	summary := Summary{Account: account, Total: len(pending), StartedAt: time.Now()}
	m.logger.Info("processing started", "account", account, "items", len(pending))
	started := summary
	m.publish(Event{Type: EventQueueStarted, Summary: &started})

	var runErr error
	for i, id := range pending {
		if err := ctx.Err(); err != nil {
			summary.Skipped = len(pending) - i
			runErr = err
			break
		}
		switch m.processItem(ctx, id, account, category) {
		case models.ItemStatusCompleted:
			summary.Completed++
		case models.ItemStatusError:
			summary.Failed++
		}
	}

	summary.FinishedAt = time.Now()
	m.logger.Info("processing complete",
		"account", account,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.Duration())

	final := summary
	m.publish(Event{Type: EventQueueComplete, Summary: &final})
	if m.onComplete != nil {
		m.onComplete(summary)
	}
	return summary, runErr
}

// processItem moves one item through extraction and upload and returns its
// final status.
func (m *Manager) processItem(ctx context.Context, id, account string, category CategoryFunc) models.ItemStatus {
	started := time.Now()
	cat := category()

	file, ok := m.beginItem(id, cat)
	if !ok {
		return ""
	}
	m.logger.Info("extracting", "item", shortID(id), "file", file.Name, "category", cat)

	entry := models.HistoryEntry{
		ItemID:     id,
		Account:    account,
		SourceName: file.Name,
		SourceSize: file.Size,
		Category:   cat,
	}

	if !cat.Valid() {
		return m.finishItem(ctx, entry, started, fmt.Errorf("unknown category %q", cat))
	}

	text, err := m.extract(ctx, file)
	if err != nil {
		return m.finishItem(ctx, entry, started, err)
	}
	entry.TextBytes = len(text)

	target := models.UploadTarget{
		Account:  account,
		Category: cat,
		FileName: TargetName(file.Name),
		FileData: base64.StdEncoding.EncodeToString([]byte(text)),
	}
	entry.TargetName = target.FileName

	m.updateItem(id, func(it *models.QueueItem) {
		it.Status = models.ItemStatusUploading
		it.TargetName = target.FileName
	})
	m.logger.Info("uploading", "item", shortID(id), "target", target.FileName, "bytes", len(text))

	if err := m.uploader.UploadFile(ctx, target); err != nil {
		return m.finishItem(ctx, entry, started, err)
	}
	return m.finishItem(ctx, entry, started, nil)
}

func (m *Manager) extract(ctx context.Context, file models.SourceFile) (string, error) {
	if m.extractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.extractTimeout)
		defer cancel()
	}
	return m.extractor.Extract(ctx, file.Name, file.Data)
}

// beginItem marks a pending item as extracting and returns its file.
func (m *Manager) beginItem(id string, cat models.Category) (models.SourceFile, bool) {
	var file models.SourceFile
	found := m.updateItem(id, func(it *models.QueueItem) {
		it.Status = models.ItemStatusExtracting
		it.Category = cat
		file = it.File
	})
	return file, found
}

// finishItem marks the item completed, or error when err is set, and records it.
func (m *Manager) finishItem(ctx context.Context, entry models.HistoryEntry, started time.Time, err error) models.ItemStatus {
	status := models.ItemStatusCompleted
	if err != nil {
		status = models.ItemStatusError
		entry.Error = err.Error()
	}

	m.updateItem(entry.ItemID, func(it *models.QueueItem) {
		it.Status = status
		it.Error = entry.Error
	})

	if err != nil {
		m.logger.Warn("item failed", "item", shortID(entry.ItemID), "file", entry.SourceName, "error", err)
	} else {
		m.logger.Info("item completed", "item", shortID(entry.ItemID), "target", entry.TargetName)
	}

	if m.recorder != nil {
		entry.Status = status
		entry.FinishedAt = time.Now()
		entry.DurationMs = entry.FinishedAt.Sub(started).Milliseconds()
		if recErr := m.recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
			m.logger.Warn("failed to record history", "item", shortID(entry.ItemID), "error", recErr)
		}
	}
	return status
}

// updateItem applies fn to the item under the lock and publishes the result.
func (m *Manager) updateItem(id string, fn func(*models.QueueItem)) bool {
	m.mu.Lock()
	var snapshot models.QueueItem
	found := false
	for _, it := range m.items {
		if it.ID == id {
			fn(it)
			it.UpdatedAt = time.Now()
			snapshot = *it
			found = true
			break
		}
	}
	m.mu.Unlock()

	if found {
		m.publish(Event{Type: EventItemUpdated, Item: &snapshot})
	}
	return found
}

// TargetName derives the uploaded file name: the original name without its
// last extension, plus ".txt". Names without a usable extension keep their
// full text.
func TargetName(name string) string {
	stem := name
	if i := strings.LastIndex(name, "."); i > 0 {
		stem = name[:i]
	}
	return stem + ".txt"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
