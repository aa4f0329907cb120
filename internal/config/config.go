// Package config provides YAML-based configuration for the portal server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/campusai/portal/internal/upload"
)

// AppConfig represents the root configuration structure
type AppConfig struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage"`

	// Remote backend
	Backend BackendConfig `yaml:"backend"`

	// Processing configuration
	Processing ProcessingConfig `yaml:"processing"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Logging options
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int      `yaml:"port"`
	BindAddress  string   `yaml:"bind_address"`
	EnableCORS   bool     `yaml:"enable_cors"`
	AllowOrigins []string `yaml:"allow_origins"`
	ReadTimeout  int      `yaml:"read_timeout_seconds"`
	WriteTimeout int      `yaml:"write_timeout_seconds"`
	IdleTimeout  int      `yaml:"idle_timeout_seconds"`
	BodyLimit    string   `yaml:"body_limit"`
}

// StorageConfig contains local storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"data_directory"`
	// HistoryDSN is the DuckDB database for the upload history. Empty keeps it in memory.
	HistoryDSN string `yaml:"history_dsn"`
}

// BackendConfig points at the remote campus backend.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ProcessingConfig contains extraction and session settings
type ProcessingConfig struct {
	OCRBinary                string `yaml:"ocr_binary"`
	OCRLanguage              string `yaml:"ocr_language"`
	ExtractionTimeoutSeconds int    `yaml:"extraction_timeout_seconds"`
	SessionTimeoutMinutes    int    `yaml:"session_timeout_minutes"`
	CleanupIntervalMinutes   int    `yaml:"cleanup_interval_minutes"`
	MaxSessions              int    `yaml:"max_sessions"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowedFileTypes []string `yaml:"allowed_file_types"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	RequestLogging bool   `yaml:"request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: []string{"*"},
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "200M",
		},
		Storage: StorageConfig{
			DataDirectory: "./data",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 60,
		},
		Processing: ProcessingConfig{
			OCRBinary:                "tesseract",
			OCRLanguage:              "eng",
			ExtractionTimeoutSeconds: 300,
			SessionTimeoutMinutes:    720,
			CleanupIntervalMinutes:   5,
			MaxSessions:              256,
		},
		Security: SecurityConfig{
			AllowedFileTypes: append([]string(nil), upload.DefaultAllowedExtensions...),
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is created
// with the defaults.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves the configuration to a YAML file
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Campus portal configuration\n# This file is auto-generated on first run\n\n")
	content := append(header, output...)

	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}
	if backendURL := os.Getenv("BACKEND_URL"); backendURL != "" {
		c.Backend.BaseURL = backendURL
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dsn, ok := os.LookupEnv("HISTORY_DSN"); ok {
		c.Storage.HistoryDSN = dsn
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	// A bare file name for the history database lives in the data directory.
	if dsn := c.Storage.HistoryDSN; dsn != "" && dsn != ":memory:" && !filepath.IsAbs(dsn) {
		c.Storage.HistoryDSN = filepath.Join(c.Storage.DataDirectory, dsn)
	}
}

// Validate reports the first setting that cannot work.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if len(c.Security.AllowedFileTypes) == 0 {
		return errors.New("security.allowed_file_types must not be empty")
	}
	if c.Processing.ExtractionTimeoutSeconds < 0 {
		return errors.New("processing.extraction_timeout_seconds must not be negative")
	}
	return nil
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// BackendTimeout returns the per-request timeout for the remote backend.
func (c *AppConfig) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// ExtractionTimeout returns the per-item extraction limit; zero means none.
func (c *AppConfig) ExtractionTimeout() time.Duration {
	return time.Duration(c.Processing.ExtractionTimeoutSeconds) * time.Second
}

// SessionTimeout returns how long an idle session survives.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Processing.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle sessions and streams are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	if c.Processing.CleanupIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Processing.CleanupIntervalMinutes) * time.Minute
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDirectory}
	if dsn := c.Storage.HistoryDSN; dsn != "" && dsn != ":memory:" {
		dirs = append(dirs, filepath.Dir(dsn))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
