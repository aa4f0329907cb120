package extract

import (
	"context"
	"strings"
)

// TextExtractor decodes plain text as UTF-8.
type TextExtractor struct{}

// NewTextExtractor creates a new plain text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Name() string { return "text" }

func (e *TextExtractor) CanExtract(fileName string) bool {
	return hasSuffix(fileName, ".txt")
}

// Extract returns the content unchanged except that invalid byte sequences are
// replaced with U+FFFD.
func (e *TextExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), "�"), nil
}
