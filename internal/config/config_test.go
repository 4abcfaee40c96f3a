// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
version = "1.0"

[api]
base_url = "https://atlas.example.gov/api"
max_retries = 5

[ui]
theme = "light"
`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://atlas.example.gov/api", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.MaxRetries)
	assert.Equal(t, "light", cfg.UI.Theme)
	// Unset sections keep defaults.
	assert.Equal(t, "dark", cfg.Export.Theme)
	assert.True(t, cfg.Chat.HistoryEnabled)
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"api": {"base_url": "http://10.0.0.5:8000/api", "max_retries": 1}
	}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 1, cfg.API.MaxRetries)
}

func TestLoadFromPath_InvalidValuesRejected(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"bad url", "[api]\nbase_url = \"not a url\""},
		{"bad scheme", "[api]\nbase_url = \"ftp://host/api\""},
		{"retries out of range", "[api]\nmax_retries = 99"},
		{"bad theme", "[ui]\ntheme = \"solarized\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.toml), 0600))
			_, err := LoadFromPath(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadFromPath_MalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[["), 0600))
	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestSaveTOML_RoundTripsAndRestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "https://atlas.example.gov/api"
	cfg.UI.Theme = "light"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API.BaseURL, loaded.API.BaseURL)
	assert.Equal(t, "light", loaded.UI.Theme)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ATLAS_API_URL", "http://override:9000/api")
	t.Setenv("ATLAS_MAX_RETRIES", "2")
	t.Setenv("ATLAS_HISTORY", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://override:9000/api", cfg.API.BaseURL)
	assert.Equal(t, 2, cfg.API.MaxRetries)
	assert.False(t, cfg.Chat.HistoryEnabled)
}

func TestEnvOverrides_GarbageIgnored(t *testing.T) {
	t.Setenv("ATLAS_MAX_RETRIES", "lots")
	t.Setenv("ATLAS_HISTORY", "maybe")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, Default().API.MaxRetries, cfg.API.MaxRetries)
	assert.True(t, cfg.Chat.HistoryEnabled)
}

func TestLoadTOML_FixesLoosePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"1.0\"\n"), 0644))

	cfg := Default()
	require.NoError(t, LoadTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	var reloads atomic.Int32
	var lastURL atomic.Value
	w, err := NewWatcher(path, func(cfg *Config) {
		lastURL.Store(cfg.API.BaseURL)
		reloads.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	cfg := Default()
	cfg.API.BaseURL = "http://changed:8000/api"
	require.NoError(t, SaveTOML(cfg, path))

	require.Eventually(t, func() bool {
		return reloads.Load() > 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "http://changed:8000/api", lastURL.Load())
}

func TestWatcher_InvalidChangeKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	var reloads atomic.Int32
	w, err := NewWatcher(path, func(*Config) { reloads.Add(1) })
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch())

	require.NoError(t, os.WriteFile(path, []byte("[[[["), 0600))

	// Give the debounce a chance; the broken file must not reach the
	// callback.
	time.Sleep(600 * time.Millisecond)
	assert.Zero(t, reloads.Load())
}
