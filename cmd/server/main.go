package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/campusai/portal/internal/api"
	"github.com/campusai/portal/internal/backend"
	"github.com/campusai/portal/internal/config"
	"github.com/campusai/portal/internal/dashboard"
	"github.com/campusai/portal/internal/extract"
	"github.com/campusai/portal/internal/history"
	"github.com/campusai/portal/internal/logging"
	"github.com/campusai/portal/internal/session"
	"github.com/campusai/portal/internal/upload"
	"github.com/campusai/portal/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to locate configuration: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, configPath, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// resolveConfigPath prefers PORTAL_CONFIG, then portal.yaml next to the binary.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("PORTAL_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), "portal.yaml"), nil
}

func run(cfg *config.AppConfig, configPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embeddedMode := web.HasEmbeddedFiles()

	// Extraction
	ocr := extract.NewTesseract(cfg.Processing.OCRBinary)
	if !ocr.IsAvailable() {
		logger.Warn("tesseract not found, image uploads will fail", "binary", cfg.Processing.OCRBinary)
	}
	registry := extract.NewRegistry(
		extract.WithLogger(logger),
		extract.WithOCR(ocr, cfg.Processing.OCRLanguage),
	)

	// Remote backend
	client := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.BackendTimeout()),
		backend.WithLogger(logger),
	)

	// Upload history is optional; the portal works without it.
	var historyReader api.HistoryReader
	ledger, err := history.Open(cfg.Storage.HistoryDSN, logger)
	if err != nil {
		logger.Warn("upload history disabled", "error", err)
	} else {
		historyReader = ledger
		defer ledger.Close()
	}

	validator := upload.NewValidator(cfg.Security.AllowedFileTypes)
	newQueue := func(onComplete func(upload.Summary)) *upload.Manager {
		opts := []upload.Option{
			upload.WithValidator(validator),
			upload.WithExtractTimeout(cfg.ExtractionTimeout()),
			upload.WithOnComplete(onComplete),
			upload.WithLogger(logger),
		}
		if ledger != nil {
			opts = append(opts, upload.WithRecorder(ledger))
		}
		return upload.NewManager(registry, client, opts...)
	}

	sessionMgr := session.NewManager(cfg.Processing.MaxSessions, logger)
	workspaces := api.NewWorkspaces(ctx, newQueue, client, logger)
	hub := dashboard.NewHub(ctx, client, logger)
	defer hub.Close()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sessionMgr.CleanupOldSessions(cfg.SessionTimeout())
				workspaces.Prune(sessionMgr.Exists)
				hub.CleanupIdle(cfg.CleanupInterval())
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e)
	api.ShowErrorDetails = strings.EqualFold(cfg.Logging.Level, "debug")

	// Configure middleware
	isStream := func(c echo.Context) bool {
		path := c.Request().URL.Path
		return strings.HasSuffix(path, "/events") ||
			strings.HasSuffix(path, "/stream") ||
			strings.HasPrefix(path, "/api/ws/") ||
			c.Request().Header.Get("Accept") == "text/event-stream"
	}

	reqLogger := logger.With("component", "http")
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			return !cfg.Logging.RequestLogging || c.Request().URL.Path == "/api/health"
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			reqLogger.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("handler panic", "uri", c.Request().RequestURI, "error", err, "stack", string(stack))
			return err
		},
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return isStream(c) || strings.HasSuffix(c.Request().URL.Path, "/queue/files")
		},
		ErrorMessage: "Request timeout",
	}))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level:   5,
		Skipper: isStream,
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := cfg.Server.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, session.HeaderName},
		}))
	}

	// API Routes
	handlers := api.NewHandlers(&api.Dependencies{
		Backend:    client,
		Sessions:   sessionMgr,
		Workspaces: workspaces,
		Hub:        hub,
		History:    historyReader,
		Checks: map[string]func() bool{
			"ocr":     ocr.IsAvailable,
			"history": func() bool { return historyReader != nil },
		},
		Version: Version,
		Logger:  logger,
	})
	api.RegisterRoutes(e, handlers, sessionMgr)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterEmbedded(e); err != nil {
			logger.Warn("failed to register static routes", "error", err)
		} else {
			logger.Info("serving embedded frontend from binary")
		}
	}

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath, embeddedMode)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.StartServer(s)
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func printBanner(cfg *config.AppConfig, configPath string, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "Embedded frontend"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Campus Admin Portal Server                      ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.Backend.BaseURL)
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
