// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for atlas.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.atlas/config.toml
//   - ~/.atlas/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/atlas-tui/internal/api"
	"github.com/jeranaias/atlas-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete atlas configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// API backend configuration
	API APIConfig `toml:"api" json:"api"`

	// Auth configuration
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Export configuration
	Export ExportConfig `toml:"export" json:"export"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig contains backend connection configuration.
type APIConfig struct {
	// BaseURL is the Atlas backend API base (scheme://host[:port]/api)
	BaseURL string `toml:"base_url" json:"base_url"`
	// MaxRetries is the retry count for transient failures (0-10)
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// AuthConfig contains credential handling configuration.
type AuthConfig struct {
	// EncryptCredentials stores the cached identity encrypted with a
	// machine-local key instead of plain JSON
	EncryptCredentials bool `toml:"encrypt_credentials" json:"encrypt_credentials"`
}

// ChatConfig controls what the assistant is asked to include in replies.
type ChatConfig struct {
	IncludeVisualizations bool `toml:"include_visualizations" json:"include_visualizations"`
	IncludeInsights       bool `toml:"include_insights" json:"include_insights"`
	IncludePolicies       bool `toml:"include_policies" json:"include_policies"`

	// HistoryEnabled mirrors sessions into a local sqlite database so the
	// session list works while the backend is down
	HistoryEnabled bool `toml:"history_enabled" json:"history_enabled"`
}

// ExportConfig contains conversation export configuration.
type ExportConfig struct {
	// OutputDir is where exported files are written (empty = current dir)
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// Theme for HTML export: "light" or "dark"
	Theme string `toml:"theme" json:"theme"`
	// IncludeTimestamps includes per-message timestamps
	IncludeTimestamps bool `toml:"include_timestamps" json:"include_timestamps"`
	// OpenAfterExport opens the exported file in the default application
	OpenAfterExport bool `toml:"open_after_export" json:"open_after_export"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is the color theme: "dark" or "light"
	Theme string `toml:"theme" json:"theme"`
	// ShowTimestamps shows per-message timestamps in the chat view
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	// CompactSidebar hides session metadata in the sidebar
	CompactSidebar bool `toml:"compact_sidebar" json:"compact_sidebar"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with all default values.
func Default() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			BaseURL:    api.DefaultBaseURL,
			MaxRetries: api.DefaultMaxRetries,
		},
		Auth: AuthConfig{
			EncryptCredentials: true,
		},
		Chat: ChatConfig{
			IncludeVisualizations: true,
			IncludeInsights:       true,
			IncludePolicies:       true,
			HistoryEnabled:        true,
		},
		Export: ExportConfig{
			OutputDir:         ".",
			Theme:             "dark",
			IncludeTimestamps: true,
		},
		UI: UIConfig{
			Theme:          "dark",
			ShowTimestamps: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the atlas configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".atlas"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON is selected by extension; everything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing string values with defaults. Booleans
// keep whatever decoding produced since defaults were the decode base.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.Export.Theme == "" {
		c.Export.Theme = defaults.Export.Theme
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# atlas configuration file\n")
	sb.WriteString("# Generated by atlas - edit with care\n\n")

	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("must be a valid URL with scheme and host, got %q", c.API.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme),
		})
	}

	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("must be between 0 and 10, got %d", c.API.MaxRetries),
		})
	}

	for field, theme := range map[string]string{
		"ui.theme":     c.UI.Theme,
		"export.theme": c.Export.Theme,
	} {
		if theme != "dark" && theme != "light" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be \"dark\" or \"light\", got %q", theme),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies ATLAS_* environment variables over the
// loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ATLAS_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("ATLAS_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.MaxRetries = n
		}
	}
	if v := os.Getenv("ATLAS_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("ATLAS_EXPORT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("ATLAS_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Chat.HistoryEnabled = b
		}
	}
	if v := os.Getenv("ATLAS_ENCRYPT_CREDENTIALS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Auth.EncryptCredentials = b
		}
	}
}
