// Package cli implements portalctl, the command line companion of the portal
// server. It runs the same extraction and upload pipeline without the web UI.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/campusai/portal/internal/backend"
	"github.com/campusai/portal/internal/extract"
	"github.com/campusai/portal/internal/logging"
	"github.com/campusai/portal/internal/upload"
)

// VersionInfo is injected by main through ldflags.
type VersionInfo struct {
	Version   string
	GitCommit string
	BuildTime string
}

// App holds the state shared by every subcommand.
type App struct {
	Info VersionInfo

	logLevel   string
	backendURL string
	ocrBinary  string
	ocrLang    string

	// NewUploader builds the upload target. Tests replace it with a fake.
	NewUploader func(baseURL string, logger *slog.Logger) upload.Uploader
	// NewExtractor builds the extraction pipeline.
	NewExtractor func(logger *slog.Logger) upload.Extractor

	stderr io.Writer
}

// NewApp creates an App wired to the real backend client and extractors.
func NewApp(info VersionInfo) *App {
	a := &App{Info: info, stderr: os.Stderr}
	a.NewUploader = func(baseURL string, logger *slog.Logger) upload.Uploader {
		return backend.New(baseURL, backend.WithLogger(logger))
	}
	a.NewExtractor = func(logger *slog.Logger) upload.Extractor {
		return extract.NewRegistry(
			extract.WithLogger(logger),
			extract.WithOCR(extract.NewTesseract(a.ocrBinary), a.ocrLang),
		)
	}
	return a
}

func (a *App) logger() *slog.Logger {
	return logging.New(a.logLevel, "text", a.stderr)
}

// NewRootCmd builds the command tree.
func (a *App) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "Extract and upload knowledge files for the campus portal",
		Long: `portalctl converts documents (PDF, DOCX, PPTX, XLSX, JSON, images and
plain text) into text and uploads them to a department account's knowledge
base, the same way the portal's upload queue does.

Examples:
  portalctl extract notice.pdf                      # Print extracted text
  portalctl extract slides.pptx -o slides.txt       # Write text to a file
  portalctl upload ./faq --account cs@campus.edu --category faq`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.backendURL, "backend", envOr("BACKEND_URL", "http://localhost:8000"), "Remote backend base URL")
	root.PersistentFlags().StringVar(&a.ocrBinary, "ocr-binary", extract.DefaultTesseractPath, "Tesseract executable used for images")
	root.PersistentFlags().StringVar(&a.ocrLang, "ocr-lang", extract.DefaultOCRLanguage, "Tesseract language")

	root.AddCommand(a.newExtractCmd(), a.newUploadCmd(), a.newVersionCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
