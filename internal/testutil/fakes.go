// fakes.go - In-memory collaborators for queue and extractor tests
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/campusai/portal/internal/extract"
	"github.com/campusai/portal/internal/models"
)

// FakeUploader records every upload and fails the file names it is told to.
type FakeUploader struct {
	mu       sync.Mutex
	uploads  []models.UploadTarget
	failures map[string]error

	// OnUpload, when set, runs before each upload returns.
	OnUpload func(models.UploadTarget)
}

// NewFakeUploader creates an uploader that accepts everything.
func NewFakeUploader() *FakeUploader {
	return &FakeUploader{failures: make(map[string]error)}
}

// FailOn makes uploads of fileName return err.
func (f *FakeUploader) FailOn(fileName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[fileName] = err
}

func (f *FakeUploader) UploadFile(ctx context.Context, target models.UploadTarget) error {
	if f.OnUpload != nil {
		f.OnUpload(target)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[target.FileName]; ok {
		return err
	}
	f.uploads = append(f.uploads, target)
	return nil
}

// Uploads returns the successful uploads in call order.
func (f *FakeUploader) Uploads() []models.UploadTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UploadTarget(nil), f.uploads...)
}

// FakeExtractor returns canned text per file name.
type FakeExtractor struct {
	mu       sync.Mutex
	texts    map[string]string
	failures map[string]error
	calls    []string

	// OnExtract, when set, runs at the start of each extraction.
	OnExtract func(fileName string)
}

// NewFakeExtractor creates an extractor that echoes "text of <name>".
func NewFakeExtractor() *FakeExtractor {
	return &FakeExtractor{
		texts:    make(map[string]string),
		failures: make(map[string]error),
	}
}

// SetText sets the text returned for fileName.
func (f *FakeExtractor) SetText(fileName, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[fileName] = text
}

// FailOn makes extraction of fileName fail with err.
func (f *FakeExtractor) FailOn(fileName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[fileName] = err
}

func (f *FakeExtractor) Extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if f.OnExtract != nil {
		f.OnExtract(fileName)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fileName)
	if err, ok := f.failures[fileName]; ok {
		return "", &extract.ExtractionError{FileName: fileName, Extractor: "fake", Err: err}
	}
	if text, ok := f.texts[fileName]; ok {
		return text, nil
	}
	return fmt.Sprintf("text of %s", fileName), nil
}

// Calls returns the extracted file names in call order.
func (f *FakeExtractor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeRecorder keeps history entries in memory.
type FakeRecorder struct {
	mu      sync.Mutex
	entries []models.HistoryEntry
}

func (f *FakeRecorder) Record(ctx context.Context, entry models.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

// Entries returns the recorded entries in order.
func (f *FakeRecorder) Entries() []models.HistoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.HistoryEntry(nil), f.entries...)
}

// FakeOCR is an OCR provider that returns fixed text and counts sessions.
type FakeOCR struct {
	mu     sync.Mutex
	Text   string
	Err    error
	opened int
	closed int
}

func (f *FakeOCR) Acquire(ctx context.Context) (extract.OCRSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	return &fakeOCRSession{owner: f}, nil
}

// Sessions returns how many sessions were opened and closed.
func (f *FakeOCR) Sessions() (opened, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.closed
}

type fakeOCRSession struct {
	owner *FakeOCR
}

func (s *fakeOCRSession) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	if s.owner.Err != nil {
		return "", s.owner.Err
	}
	return s.owner.Text, nil
}

func (s *fakeOCRSession) Close() error {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.owner.closed++
	return nil
}

var (
	_ extract.OCRProvider = (*FakeOCR)(nil)
)
