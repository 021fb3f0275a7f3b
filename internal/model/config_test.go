package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 30*time.Second, cfg.Sync.Timeout)
	assert.Equal(t, 3, cfg.Sync.RetryAttempts)
	assert.Equal(t, time.Second, cfg.Sync.RetryDelay)
	assert.Empty(t, cfg.Remote.Endpoint)
}

func TestSaveThenLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Remote.Endpoint = "https://hooks.example.com/po"
	cfg.Remote.APIKey = "secret"
	cfg.Sync.Interval = 2 * time.Minute
	cfg.Display.DarkMode = true
	require.NoError(t, SaveConfig(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com/po", got.Remote.Endpoint)
	assert.Empty(t, got.Remote.APIKey)
	assert.Equal(t, 2*time.Minute, got.Sync.Interval)
	assert.True(t, got.Display.DarkMode)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("POINTAKE_REMOTE_ENDPOINT", "https://env.example.com/hook")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/hook", cfg.Remote.Endpoint)
}

func TestRemoteOverlay(t *testing.T) {
	base := RemoteConfig{Endpoint: "https://a.example.com", APIKey: "k1"}
	endpoint := " https://b.example.com "
	empty := ""

	got := base.Overlay(RemotePatch{Endpoint: &endpoint})
	assert.Equal(t, RemoteConfig{Endpoint: "https://b.example.com", APIKey: "k1"}, got)

	got = base.Overlay(RemotePatch{APIKey: &empty})
	assert.Equal(t, RemoteConfig{Endpoint: "https://a.example.com"}, got)

	assert.Equal(t, base, base.Overlay(RemotePatch{}))
}
