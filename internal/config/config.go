/*
Package config handles loading, saving, and validating agentforge
configuration.

Settings live in ~/.agentforge/config.json (camelCase keys); the service
credential comes from the GEMINI_API_KEY environment variable only and is
never persisted. Configuration is an explicit struct passed into the
coordinator and registry at construction, not hidden global state.
*/
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"agentforge/internal/llm"
	"agentforge/internal/similarity"
)

// EnvAPIKey is the environment variable holding the service credential.
const EnvAPIKey = "GEMINI_API_KEY"

const (
	defaultTimeoutSeconds = 120
	appDirName            = ".agentforge"
)

// Config represents the full agentforge configuration.
type Config struct {
	// SimilarityThreshold is the minimum combined score for reusing an
	// existing handler instead of creating a new one.
	SimilarityThreshold float64 `json:"similarityThreshold,omitempty"`

	// StorageFile is the handler registry JSON file path.
	StorageFile string `json:"storageFile,omitempty"`

	// HistoryFile is the usage-history SQLite database path.
	HistoryFile string `json:"historyFile,omitempty"`

	// Model is the completion model name.
	Model string `json:"model,omitempty"`

	// TimeoutSeconds bounds each completion call so a hung network call
	// cannot freeze the interactive loop.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`

	// APIKey is the service credential, from the environment only.
	APIKey string `json:"-"`
}

// Default returns the configuration used when no settings file exists.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, appDirName)
	return &Config{
		SimilarityThreshold: similarity.DefaultThreshold,
		StorageFile:         filepath.Join(dir, "agents.json"),
		HistoryFile:         filepath.Join(dir, "history.db"),
		Model:               llm.DefaultModel,
		TimeoutSeconds:      defaultTimeoutSeconds,
	}, nil
}

// DefaultPath returns the settings file path.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, appDirName, "config.json"), nil
}

// LoadOrCreate reads the settings file, creating it with defaults when
// missing. The credential is read from the environment afterwards; call
// RequireCredential before anything that talks to the completion service.
func LoadOrCreate() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg, err = Default()
		if err != nil {
			return nil, err
		}
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
	}
	cfg.APIKey = os.Getenv(EnvAPIKey)
	return cfg, nil
}

// LoadFrom reads configuration from a specific path and fills unset fields
// with defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigurationError{
			Path:    path,
			Message: fmt.Sprintf("failed to parse config: %v", err),
			Hint:    "Fix or delete the file; defaults are recreated on next run",
		}
	}

	defaults, err := Default()
	if err != nil {
		return nil, err
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaults.SimilarityThreshold
	}
	if cfg.StorageFile == "" {
		cfg.StorageFile = defaults.StorageFile
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = defaults.HistoryFile
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = defaults.TimeoutSeconds
	}
	return &cfg, nil
}

// Save writes the settings atomically (temp file in the same directory,
// then rename).
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// RequireCredential validates that the service credential is present.
// A missing credential is fatal at startup, before the read loop begins.
func (c *Config) RequireCredential() error {
	if c.APIKey == "" {
		return &ConfigurationError{
			Message: fmt.Sprintf("missing required environment variable %s", EnvAPIKey),
			Hint:    fmt.Sprintf("Export your Gemini API key: export %s=<key>", EnvAPIKey),
		}
	}
	return nil
}

// Timeout returns the per-request completion budget as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
