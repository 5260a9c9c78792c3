package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full rally client configuration. It is stored as JSON under
// the rally home directory and can be overridden field-by-field through
// RALLY_* environment variables.
type Config struct {
	API      APIConfig      `json:"api"`
	Realtime RealtimeConfig `json:"realtime"`
	Chat     ChatConfig     `json:"chat"`
	LogLevel string         `json:"log_level,omitempty" env:"RALLY_LOG_LEVEL"`

	homeDir string
}

type APIConfig struct {
	BaseURL string `json:"base_url" env:"RALLY_API_URL"`
	// TimeoutSeconds bounds every REST call. 0 means the default (10s).
	TimeoutSeconds int `json:"timeout_seconds,omitempty" env:"RALLY_API_TIMEOUT"`
}

type RealtimeConfig struct {
	URL string `json:"url" env:"RALLY_REALTIME_URL"`
	// MaxReconnectAttempts bounds automatic reconnection after a drop.
	MaxReconnectAttempts int `json:"max_reconnect_attempts,omitempty" env:"RALLY_REALTIME_MAX_RECONNECT"`
	// HandshakeTimeoutSeconds bounds the websocket dial.
	HandshakeTimeoutSeconds int `json:"handshake_timeout_seconds,omitempty" env:"RALLY_REALTIME_HANDSHAKE_TIMEOUT"`
}

type ChatConfig struct {
	// HistoryPageSize is the number of messages requested per history fetch.
	HistoryPageSize int `json:"history_page_size,omitempty" env:"RALLY_HISTORY_PAGE_SIZE"`
}

func (c *Config) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) HandshakeTimeout() time.Duration {
	if c.Realtime.HandshakeTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Realtime.HandshakeTimeoutSeconds) * time.Second
}

func (c *Config) HistoryPageSize() int {
	if c.Chat.HistoryPageSize <= 0 {
		return 50
	}
	return c.Chat.HistoryPageSize
}

// HomeDir returns the rally home directory (config, credential, logs).
func (c *Config) HomeDir() string {
	if c.homeDir != "" {
		return c.homeDir
	}
	if dir := os.Getenv("RALLY_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rally"
	}
	return filepath.Join(home, ".rally")
}

// CredentialPath is where the login credential is persisted.
func (c *Config) CredentialPath() string {
	return filepath.Join(c.HomeDir(), "credential.json")
}

func DefaultConfig() *Config {
	return &Config{
		API:      APIConfig{BaseURL: "https://api.courtline.app"},
		Realtime: RealtimeConfig{URL: "wss://api.courtline.app/ws", MaxReconnectAttempts: 5},
		LogLevel: "info",
	}
}

// LoadConfig reads the config file if present, falls back to defaults
// otherwise, and applies .env plus environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	// A .env next to the config file is optional; absence is not an error.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// first run, defaults apply
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}
	cfg.homeDir = filepath.Dir(path)
	return cfg, nil
}

// SaveConfig writes the config as indented JSON, creating the directory
// if needed.
func SaveConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	var c Config
	return filepath.Join(c.HomeDir(), "config.json")
}
