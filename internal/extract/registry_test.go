package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panickingExtractor struct{}

func (panickingExtractor) Name() string                    { return "boom" }
func (panickingExtractor) CanExtract(fileName string) bool { return hasSuffix(fileName, ".boom") }
func (panickingExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	panic("malformed xref table")
}

func TestRegistry_FindExtractor(t *testing.T) {
	r := NewRegistry(WithOCR(&stubOCR{}, "eng"))

	tests := []struct {
		file string
		want string
	}{
		{"report.PDF", "pdf"},
		{"minutes.docx", "docx"},
		{"grades.xlsx", "xlsx"},
		{"faq.json", "json"},
		{"poster.JPG", "image"},
		{"scan.jpeg", "image"},
		{"diagram.png", "image"},
		{"slides.pptx", "pptx"},
		{"legacy.ppt", "unsupported"},
		{"notes.txt", "text"},
		{"README", "text"},
		{"data.csv", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			assert.Equal(t, tt.want, r.FindExtractor(tt.file).Name())
		})
	}
}

func TestRegistry_Extract(t *testing.T) {
	r := NewRegistry(WithOCR(&stubOCR{text: "ocr text"}, "eng"))
	ctx := context.Background()

	t.Run("text passthrough", func(t *testing.T) {
		got, err := r.Extract(ctx, "notes.txt", []byte("hello\xffworld"))
		require.NoError(t, err)
		assert.Equal(t, "hello�world", got)
	})

	t.Run("invalid json is a result", func(t *testing.T) {
		got, err := r.Extract(ctx, "broken.json", []byte("{"))
		require.NoError(t, err)
		assert.Equal(t, "Invalid JSON", got)
	})

	t.Run("image goes to ocr", func(t *testing.T) {
		got, err := r.Extract(ctx, "scan.png", []byte{1})
		require.NoError(t, err)
		assert.Equal(t, "ocr text", got)
	})

	t.Run("failures are wrapped with the file name", func(t *testing.T) {
		_, err := r.Extract(ctx, "legacy.ppt", []byte{1})
		require.Error(t, err)

		var extractionErr *ExtractionError
		require.True(t, errors.As(err, &extractionErr))
		assert.Equal(t, "legacy.ppt", extractionErr.FileName)
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Contains(t, err.Error(), "failed to extract text from legacy.ppt")
	})

	t.Run("malformed pdf", func(t *testing.T) {
		_, err := r.Extract(ctx, "broken.pdf", []byte("%PDF-1.4 garbage"))
		var extractionErr *ExtractionError
		assert.True(t, errors.As(err, &extractionErr))
	})

	t.Run("panics are recovered", func(t *testing.T) {
		r.Register(panickingExtractor{})
		_, err := r.Extract(ctx, "x.boom", nil)
		var extractionErr *ExtractionError
		require.True(t, errors.As(err, &extractionErr))
		assert.Equal(t, "boom", extractionErr.Extractor)
		assert.Contains(t, err.Error(), "malformed xref table")
	})
}

func TestRegistry_GetExtractorByName(t *testing.T) {
	r := NewRegistry()

	e, err := r.GetExtractorByName("DOCX")
	require.NoError(t, err)
	assert.Equal(t, "docx", e.Name())

	_, err = r.GetExtractorByName("rtf")
	assert.Error(t, err)
}
