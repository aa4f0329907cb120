// Package extract converts uploaded documents into normalized plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for formats that are accepted upstream but
// cannot be converted to text.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Extractor converts the bytes of one document format into text.
type Extractor interface {
	// Name returns the unique name of the extractor.
	Name() string
	// CanExtract returns true if this extractor handles the given file name.
	CanExtract(fileName string) bool
	// Extract returns the document's text.
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractionError wraps any extractor failure together with the file it came from.
type ExtractionError struct {
	FileName  string
	Extractor string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.FileName, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Ext returns the lower-cased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// hasSuffix reports whether the lower-cased name ends with one of suffixes.
func hasSuffix(name string, suffixes ...string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// unsupported rejects formats that have no text representation here.
type unsupported struct {
	suffixes []string
}

// NewUnsupportedExtractor claims the given suffixes and fails every extraction
// with ErrUnsupportedFormat.
func NewUnsupportedExtractor(suffixes ...string) Extractor {
	return &unsupported{suffixes: suffixes}
}

func (u *unsupported) Name() string { return "unsupported" }

func (u *unsupported) CanExtract(fileName string) bool {
	return hasSuffix(fileName, u.suffixes...)
}

func (u *unsupported) Extract(ctx context.Context, data []byte) (string, error) {
	return "", fmt.Errorf("%w: %s files cannot be converted to text", ErrUnsupportedFormat, strings.Join(u.suffixes, "/"))
}
