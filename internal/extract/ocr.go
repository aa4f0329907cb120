package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// DefaultTesseractPath is looked up on PATH.
	DefaultTesseractPath = "tesseract"
	// DefaultOCRLanguage is the recognition language used for images.
	DefaultOCRLanguage = "eng"
)

// OCRProvider hands out recognition sessions. A session owns whatever
// resources recognition needs and must be closed after use.
type OCRProvider interface {
	Acquire(ctx context.Context) (OCRSession, error)
}

// OCRSession recognizes text in a single image.
type OCRSession interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
	Close() error
}

// ImageExtractor runs OCR on raster images.
type ImageExtractor struct {
	provider OCRProvider
	lang     string
}

// NewImageExtractor creates an image extractor backed by provider.
func NewImageExtractor(provider OCRProvider, lang string) *ImageExtractor {
	if lang == "" {
		lang = DefaultOCRLanguage
	}
	return &ImageExtractor{provider: provider, lang: lang}
}

func (e *ImageExtractor) Name() string { return "image" }

func (e *ImageExtractor) CanExtract(fileName string) bool {
	return hasSuffix(fileName, ".png", ".jpg", ".jpeg")
}

// Extract recognizes the image text. The session is released on every path.
func (e *ImageExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	session, err := e.provider.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("start ocr: %w", err)
	}
	defer session.Close()

	text, err := session.Recognize(ctx, data, e.lang)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}

// Tesseract is an OCRProvider that shells out to the tesseract CLI.
type Tesseract struct {
	Path string
}

// NewTesseract creates a provider for the tesseract binary at path.
func NewTesseract(path string) *Tesseract {
	if path == "" {
		path = DefaultTesseractPath
	}
	return &Tesseract{Path: path}
}

// IsAvailable checks if the tesseract binary can be found.
func (t *Tesseract) IsAvailable() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

// Acquire creates a private working directory for one recognition.
func (t *Tesseract) Acquire(ctx context.Context) (OCRSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "portal-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create ocr workspace: %w", err)
	}
	return &tesseractSession{path: t.Path, dir: dir}, nil
}

type tesseractSession struct {
	path string
	dir  string
}

func (s *tesseractSession) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	input := filepath.Join(s.dir, "input")
	if err := os.WriteFile(input, image, 0600); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, input, "stdout", "-l", lang)
	cmd.Dir = s.dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("tesseract failed: %w", err)
		}
		return "", fmt.Errorf("tesseract failed: %w: %s", err, msg)
	}
	return stdout.String(), nil
}

func (s *tesseractSession) Close() error {
	return os.RemoveAll(s.dir)
}
