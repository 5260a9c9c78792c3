package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "https://api.courtline.app", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.Realtime.MaxReconnectAttempts)
	assert.Equal(t, 50, cfg.HistoryPageSize())
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  "api": {"base_url": "https://staging.courtline.app", "timeout_seconds": 3},
  "realtime": {"url": "wss://staging.courtline.app/ws"},
  "chat": {"history_page_size": 20}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.courtline.app", cfg.API.BaseURL)
	assert.Equal(t, "3s", cfg.APITimeout().String())
	assert.Equal(t, 20, cfg.HistoryPageSize())
	assert.Equal(t, dir, cfg.HomeDir())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("RALLY_API_URL", "https://override.courtline.app")
	t.Setenv("RALLY_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "https://override.courtline.app", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "config.json")
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://self-hosted.example"
	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://self-hosted.example", got.API.BaseURL)
}

func TestCredentialPath(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "credential.json"), cfg.CredentialPath())
}
