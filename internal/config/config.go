// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and validation for trialdesk.
//
// Configuration is read from a TOML file, then overridden by environment
// variables (optionally seeded from a .env file in the working directory).
//
// Configuration file location:
//   - ~/.trialdesk/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/jeranaias/trialdesk/internal/util"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TRIALDESK_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete trialdesk configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Remote recruitment API
	API APIConfig `toml:"api" json:"api" envPrefix:"API_"`

	// Session lifecycle (inactivity, renewal, access guard)
	Session SessionConfig `toml:"session" json:"session" envPrefix:"SESSION_"`

	// Session record persistence
	Storage StorageConfig `toml:"storage" json:"storage" envPrefix:"STORAGE_"`

	// Logging
	Log LogConfig `toml:"log" json:"log" envPrefix:"LOG_"`
}

// APIConfig contains the remote API endpoints.
type APIConfig struct {
	// BaseURL is the root of the recruitment API, without trailing slash.
	BaseURL string `toml:"base_url" json:"base_url" env:"BASE_URL"`
	// LoginPath receives POST {email, password}.
	LoginPath string `toml:"login_path" json:"login_path" env:"LOGIN_PATH"`
	// RefreshPath receives POST with the bearer token and returns a new grant.
	// Empty disables renewal.
	RefreshPath string `toml:"refresh_path" json:"refresh_path" env:"REFRESH_PATH"`
	// RenewalEnabled wires RefreshPath into the session controller. Off by
	// default: the platform exposes no refresh endpoint, so the session
	// simply ends at its expiration instant.
	RenewalEnabled bool `toml:"renewal_enabled" json:"renewal_enabled" env:"RENEWAL_ENABLED"`
	// TimeoutSecs bounds every HTTP request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"TIMEOUT_SECS"`
	// MaxRetries applies to idempotent requests that fail with 5xx.
	MaxRetries int `toml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`
}

// SessionConfig contains session lifecycle settings.
type SessionConfig struct {
	// InactivityTimeoutSecs terminates the session after this long without
	// a pointer press, key press, scroll or touch.
	InactivityTimeoutSecs int `toml:"inactivity_timeout_secs" json:"inactivity_timeout_secs" env:"INACTIVITY_TIMEOUT_SECS"`
	// RefreshThresholdSecs is the window before expiration in which the
	// token is renewed.
	RefreshThresholdSecs int `toml:"refresh_threshold_secs" json:"refresh_threshold_secs" env:"REFRESH_THRESHOLD_SECS"`
	// RenewTimeoutSecs bounds a single renewal call.
	RenewTimeoutSecs int `toml:"renew_timeout_secs" json:"renew_timeout_secs" env:"RENEW_TIMEOUT_SECS"`
	// GuardIntervalSecs is how often protected views re-check the session.
	GuardIntervalSecs int `toml:"guard_interval_secs" json:"guard_interval_secs" env:"GUARD_INTERVAL_SECS"`
	// ActivityPersistIntervalMs rate limits last-activity writes to storage.
	// 0 persists every interaction.
	ActivityPersistIntervalMs int `toml:"activity_persist_interval_ms" json:"activity_persist_interval_ms" env:"ACTIVITY_PERSIST_INTERVAL_MS"`
	// LoginRoute is the default redirect target when a session ends.
	LoginRoute string `toml:"login_route" json:"login_route" env:"LOGIN_ROUTE"`
	// HomeRoute is where the login view navigates after success.
	HomeRoute string `toml:"home_route" json:"home_route" env:"HOME_ROUTE"`
}

// StorageConfig selects and configures the session record backend.
type StorageConfig struct {
	// Backend is one of: memory, file, sqlite, redis.
	Backend string `toml:"backend" json:"backend" env:"BACKEND"`
	// Path is the file or database path (empty = default under ~/.trialdesk).
	Path string `toml:"path" json:"path" env:"PATH"`
	// Redis settings (backend = "redis").
	RedisAddr     string `toml:"redis_addr" json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `toml:"redis_password" json:"-" env:"REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" json:"redis_db" env:"REDIS_DB"`
	RedisPrefix   string `toml:"redis_prefix" json:"redis_prefix" env:"REDIS_PREFIX"`
	// SealKey is a hex-encoded 32-byte key. When set, the token is encrypted
	// before it reaches the backend. Prefer the environment over the file.
	SealKey string `toml:"seal_key" json:"-" env:"SEAL_KEY"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `toml:"level" json:"level" env:"LEVEL"`
	// Path is the log file used while the TUI owns the terminal
	// (empty = ~/.trialdesk/trialdesk.log).
	Path       string `toml:"path" json:"path" env:"PATH"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" env:"MAX_AGE_DAYS"`
}

// InactivityTimeout returns the inactivity window as a duration.
func (s SessionConfig) InactivityTimeout() time.Duration {
	return time.Duration(s.InactivityTimeoutSecs) * time.Second
}

// RefreshThreshold returns the renewal window as a duration.
func (s SessionConfig) RefreshThreshold() time.Duration {
	return time.Duration(s.RefreshThresholdSecs) * time.Second
}

// RenewTimeout returns the renewal call bound as a duration.
func (s SessionConfig) RenewTimeout() time.Duration {
	return time.Duration(s.RenewTimeoutSecs) * time.Second
}

// GuardInterval returns the access guard period as a duration.
func (s SessionConfig) GuardInterval() time.Duration {
	return time.Duration(s.GuardIntervalSecs) * time.Second
}

// ActivityPersistInterval returns the last-activity write interval.
func (s SessionConfig) ActivityPersistInterval() time.Duration {
	return time.Duration(s.ActivityPersistIntervalMs) * time.Millisecond
}

// Timeout returns the HTTP request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:        "http://127.0.0.1:8000/api",
			LoginPath:      "/auth/login",
			RefreshPath:    "/auth/refresh",
			RenewalEnabled: false,
			TimeoutSecs:    30,
			MaxRetries:     3,
		},

		Session: SessionConfig{
			InactivityTimeoutSecs:     900, // 15 minutes
			RefreshThresholdSecs:      300, // 5 minutes
			RenewTimeoutSecs:          15,
			GuardIntervalSecs:         60,
			ActivityPersistIntervalMs: 0,
			LoginRoute:                "/login",
			HomeRoute:                 "/dashboard",
		},

		Storage: StorageConfig{
			Backend:     "file",
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "trialdesk:session:",
		},

		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the trialdesk configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".trialdesk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StoragePath returns the configured storage path, or the default for the
// selected backend.
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "sqlite":
		return filepath.Join(dir, "session.db"), nil
	default:
		return filepath.Join(dir, "session.json"), nil
	}
}

// LogPath returns the configured log file, or ~/.trialdesk/trialdesk.log.
func (c *Config) LogPath() (string, error) {
	if c.Log.Path != "" {
		return c.Log.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "trialdesk.log"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// The config may carry the redis password and seal key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.trialdesk/config.toml, falling back to
// defaults when the file does not exist. A .env file in the working
// directory is loaded into the environment first; environment overrides are
// applied last.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file. A missing file
// is not an error.
func LoadFromPath(path string) (*Config, error) {
	// .env is optional; values already in the environment win.
	_ = godotenv.Load()

	cfg := Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file on top of cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// ApplyEnvOverrides applies TRIALDESK_* environment variables to the config.
//
// Examples:
//   - TRIALDESK_API_BASE_URL
//   - TRIALDESK_SESSION_INACTIVITY_TIMEOUT_SECS
//   - TRIALDESK_STORAGE_BACKEND
//   - TRIALDESK_STORAGE_SEAL_KEY
//   - TRIALDESK_LOG_LEVEL
func (c *Config) ApplyEnvOverrides() error {
	return env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to ~/.trialdesk/config.toml.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
// The file is replaced atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# trialdesk configuration file")
	fmt.Fprintln(&buf, "# Secrets (storage.seal_key, storage.redis_password) are better kept in TRIALDESK_* env vars.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
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
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ErrInvalidSealKey is returned by SealKeyBytes for malformed keys.
var ErrInvalidSealKey = errors.New("seal key must be 64 hex characters")

// SealKeyBytes decodes storage.seal_key. It returns nil when no key is set.
func (s StorageConfig) SealKeyBytes() ([]byte, error) {
	if s.SealKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(s.SealKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidSealKey
	}
	return key, nil
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// API
	if c.API.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "api.base_url", Message: "must not be empty"})
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
		})
	}
	if !strings.HasPrefix(c.API.LoginPath, "/") {
		errs = append(errs, ValidationError{Field: "api.login_path", Message: "must start with '/'"})
	}
	if c.API.RefreshPath != "" && !strings.HasPrefix(c.API.RefreshPath, "/") {
		errs = append(errs, ValidationError{Field: "api.refresh_path", Message: "must start with '/' or be empty"})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "api.timeout_secs",
			Message: fmt.Sprintf("must be 1-300, got %d", c.API.TimeoutSecs),
		})
	}
	if c.API.MaxRetries < 0 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "api.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.API.MaxRetries),
		})
	}

	// Session
	if c.Session.InactivityTimeoutSecs < 60 || c.Session.InactivityTimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "session.inactivity_timeout_secs",
			Message: fmt.Sprintf("must be 60-3600, got %d", c.Session.InactivityTimeoutSecs),
		})
	}
	if c.Session.RefreshThresholdSecs < 0 || c.Session.RefreshThresholdSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "session.refresh_threshold_secs",
			Message: fmt.Sprintf("must be 0-3600, got %d", c.Session.RefreshThresholdSecs),
		})
	}
	if c.Session.RenewTimeoutSecs < 1 || c.Session.RenewTimeoutSecs > 120 {
		errs = append(errs, ValidationError{
			Field:   "session.renew_timeout_secs",
			Message: fmt.Sprintf("must be 1-120, got %d", c.Session.RenewTimeoutSecs),
		})
	}
	if c.Session.GuardIntervalSecs < 5 || c.Session.GuardIntervalSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "session.guard_interval_secs",
			Message: fmt.Sprintf("must be 5-600, got %d", c.Session.GuardIntervalSecs),
		})
	}
	if c.Session.ActivityPersistIntervalMs < 0 {
		errs = append(errs, ValidationError{Field: "session.activity_persist_interval_ms", Message: "must be non-negative"})
	}
	if !strings.HasPrefix(c.Session.LoginRoute, "/") {
		errs = append(errs, ValidationError{Field: "session.login_route", Message: "must start with '/'"})
	}
	if !strings.HasPrefix(c.Session.HomeRoute, "/") {
		errs = append(errs, ValidationError{Field: "session.home_route", Message: "must start with '/'"})
	}

	// Storage
	validBackends := map[string]bool{"memory": true, "file": true, "sqlite": true, "redis": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: memory, file, sqlite, redis", c.Storage.Backend),
		})
	}
	if strings.EqualFold(c.Storage.Backend, "redis") && c.Storage.RedisAddr == "" {
		errs = append(errs, ValidationError{Field: "storage.redis_addr", Message: "required for the redis backend"})
	}
	if c.Storage.RedisDB < 0 {
		errs = append(errs, ValidationError{Field: "storage.redis_db", Message: "must be non-negative"})
	}
	if _, err := c.Storage.SealKeyBytes(); err != nil {
		errs = append(errs, ValidationError{Field: "storage.seal_key", Message: err.Error()})
	}

	// Log
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if c.Log.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{Field: "log.max_size_mb", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty or zero fields that have no meaningful zero value.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	c.API.BaseURL = strings.TrimSuffix(c.API.BaseURL, "/")
	if c.API.LoginPath == "" {
		c.API.LoginPath = defaults.API.LoginPath
	}
	if c.API.TimeoutSecs == 0 {
		c.API.TimeoutSecs = defaults.API.TimeoutSecs
	}

	if c.Session.InactivityTimeoutSecs == 0 {
		c.Session.InactivityTimeoutSecs = defaults.Session.InactivityTimeoutSecs
	}
	if c.Session.RenewTimeoutSecs == 0 {
		c.Session.RenewTimeoutSecs = defaults.Session.RenewTimeoutSecs
	}
	if c.Session.GuardIntervalSecs == 0 {
		c.Session.GuardIntervalSecs = defaults.Session.GuardIntervalSecs
	}
	if c.Session.LoginRoute == "" {
		c.Session.LoginRoute = defaults.Session.LoginRoute
	}
	if c.Session.HomeRoute == "" {
		c.Session.HomeRoute = defaults.Session.HomeRoute
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Storage.RedisPrefix == "" {
		c.Storage.RedisPrefix = defaults.Storage.RedisPrefix
	}

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = defaults.Log.MaxSizeMB
	}
}
