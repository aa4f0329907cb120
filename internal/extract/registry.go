package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Registry holds the available extractors and routes files to them by name.
type Registry struct {
	extractors []Extractor
	fallback   Extractor
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithOCR overrides the OCR provider used for images.
func WithOCR(p OCRProvider, lang string) Option {
	return func(r *Registry) {
		for i, e := range r.extractors {
			if _, ok := e.(*ImageExtractor); ok {
				r.extractors[i] = NewImageExtractor(p, lang)
			}
		}
	}
}

// NewRegistry creates a registry with every built-in extractor.
// Files no extractor claims are read as plain text.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		extractors: []Extractor{
			NewPDFExtractor(),
			NewDOCXExtractor(),
			NewXLSXExtractor(),
			NewJSONExtractor(),
			NewImageExtractor(NewTesseract(DefaultTesseractPath), DefaultOCRLanguage),
			NewPPTXExtractor(),
			NewUnsupportedExtractor(".ppt"),
			NewTextExtractor(),
		},
		fallback: NewTextExtractor(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRegistryWith creates a registry from explicit extractors, mainly for tests.
func NewRegistryWith(fallback Extractor, extractors ...Extractor) *Registry {
	return &Registry{
		extractors: extractors,
		fallback:   fallback,
		logger:     slog.Default(),
	}
}

// Register adds an extractor ahead of the built-ins.
func (r *Registry) Register(e Extractor) {
	r.extractors = append([]Extractor{e}, r.extractors...)
}

// FindExtractor returns the extractor for fileName, or the fallback.
func (r *Registry) FindExtractor(fileName string) Extractor {
	for _, e := range r.extractors {
		if e.CanExtract(fileName) {
			return e
		}
	}
	return r.fallback
}

// GetExtractorByName returns an extractor by its name.
func (r *Registry) GetExtractorByName(name string) (Extractor, error) {
	name = strings.ToLower(name)
	for _, e := range r.extractors {
		if strings.ToLower(e.Name()) == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("extractor not found: %s", name)
}

// Extract converts one file to text. Every failure, including a panic inside a
// decoding library, comes back as *ExtractionError.
func (r *Registry) Extract(ctx context.Context, fileName string, data []byte) (text string, err error) {
	e := r.FindExtractor(fileName)
	if e == nil {
		return "", &ExtractionError{FileName: fileName, Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, Ext(fileName))}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("extractor panicked", "extractor", e.Name(), "file", fileName, "panic", rec)
			text = ""
			err = &ExtractionError{FileName: fileName, Extractor: e.Name(), Err: fmt.Errorf("extractor panicked: %v", rec)}
		}
	}()

	r.logger.Debug("extracting", "extractor", e.Name(), "file", fileName, "bytes", len(data))

	text, err = e.Extract(ctx, data)
	if err != nil {
		return "", &ExtractionError{FileName: fileName, Extractor: e.Name(), Err: err}
	}
	return text, nil
}
