// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete modechat configuration.
type Config struct {
	Service    ServiceConfig    `toml:"service" envPrefix:"SERVICE_"`
	Session    SessionConfig    `toml:"session" envPrefix:"SESSION_"`
	Storage    StorageConfig    `toml:"storage" envPrefix:"STORAGE_"`
	Classifier ClassifierConfig `toml:"classifier" envPrefix:"CLASSIFIER_"`
	Identity   IdentityConfig   `toml:"identity" envPrefix:"IDENTITY_"`
	Log        LogConfig        `toml:"log" envPrefix:"LOG_"`
	UI         UIConfig         `toml:"ui" envPrefix:"UI_"`
}

// ServiceConfig describes the inference service.
type ServiceConfig struct {
	// URL is the base URL of the service.
	URL string `toml:"url" env:"URL" validate:"required,url"`
	// Timeout bounds a single request.
	Timeout Duration `toml:"timeout" env:"TIMEOUT" validate:"gt=0"`
	// RateLimit is requests per second; 0 disables the limiter.
	RateLimit float64 `toml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"`
	RateBurst int     `toml:"rate_burst" env:"RATE_BURST" validate:"gte=1"`
}

// SessionConfig contains chat session settings.
type SessionConfig struct {
	DefaultMode string `toml:"default_mode" env:"DEFAULT_MODE" validate:"oneof=code chat explain roadmap"`
	// Language is the programming language sent with requests.
	Language string `toml:"language" env:"LANGUAGE" validate:"required"`
	// SwitchTimeout is how long a mode reload may run before it is done
	// synchronously.
	SwitchTimeout Duration `toml:"switch_timeout" env:"SWITCH_TIMEOUT" validate:"gt=0"`
	// NotificationDuration is how long the mode switch toast stays up.
	NotificationDuration Duration `toml:"notification_duration" env:"NOTIFICATION_DURATION" validate:"gt=0"`
}

// StorageConfig selects where chats are kept.
type StorageConfig struct {
	Backend string `toml:"backend" env:"BACKEND" validate:"oneof=file sqlite memory"`
	// Dir holds one file per chat list for the file backend. Empty means
	// <config dir>/chats.
	Dir string `toml:"dir" env:"DIR"`
	// SQLitePath is the database for the sqlite backend. Empty means
	// <config dir>/chats.db.
	SQLitePath string `toml:"sqlite_path" env:"SQLITE_PATH"`
}

// ClassifierConfig points at custom mode rules.
type ClassifierConfig struct {
	// RulesFile replaces the built-in rules when set.
	RulesFile string `toml:"rules_file" env:"RULES_FILE"`
	// Watch reloads RulesFile when it changes.
	Watch bool `toml:"watch" env:"WATCH"`
}

// IdentityConfig names the local user.
type IdentityConfig struct {
	// UserID scopes stored chats. Empty means the OS account name.
	UserID      string `toml:"user_id" env:"USER_ID"`
	DisplayName string `toml:"display_name" env:"DISPLAY_NAME"`
	// Token is sent to the service as a bearer token.
	Token string `toml:"token" env:"TOKEN"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL" validate:"oneof=trace debug info warn error disabled"`
	Format string `toml:"format" env:"FORMAT" validate:"oneof=console json"`
	// File is the log path. Empty means <config dir>/modechat.log.
	File string `toml:"file" env:"FILE"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	Sidebar  bool `toml:"sidebar" env:"SIDEBAR"`
	Markdown bool `toml:"markdown" env:"MARKDOWN"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			URL:       "http://localhost:8000",
			Timeout:   Duration(60 * time.Second),
			RateLimit: 2,
			RateBurst: 4,
		},
		Session: SessionConfig{
			DefaultMode:          "code",
			Language:             "python",
			SwitchTimeout:        Duration(2 * time.Second),
			NotificationDuration: Duration(4 * time.Second),
		},
		Storage: StorageConfig{
			Backend: "file",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		UI: UIConfig{
			Sidebar:  true,
			Markdown: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the modechat configuration directory, ~/.modechat
// unless MODECHAT_HOME is set.
func ConfigDir() (string, error) {
	if dir := os.Getenv("MODECHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".modechat"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// StorageDir resolves the file backend directory.
func (c *Config) StorageDir() (string, error) {
	return resolvePath(c.Storage.Dir, "chats")
}

// SQLitePath resolves the sqlite database path.
func (c *Config) SQLitePath() (string, error) {
	return resolvePath(c.Storage.SQLitePath, "chats.db")
}

// StoragePath is the location handed to the configured backend.
func (c *Config) StoragePath() (string, error) {
	switch c.Storage.Backend {
	case "sqlite":
		return c.SQLitePath()
	case "memory":
		return "", nil
	default:
		return c.StorageDir()
	}
}

// LogFile resolves the log file path.
func (c *Config) LogFile() (string, error) {
	return resolvePath(c.Log.File, "modechat.log")
}

// RulesFile resolves the classifier rules path, or "" for built-in rules.
func (c *Config) RulesFile() (string, error) {
	if c.Classifier.RulesFile == "" {
		return "", nil
	}
	return expandHome(c.Classifier.RulesFile)
}

func resolvePath(configured, fallback string) (string, error) {
	if configured != "" {
		return expandHome(configured)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fallback), nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Identity.Token != "" {
		safe.Identity.Token = "[REDACTED]"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}

// =============================================================================
// DURATION
// =============================================================================

// Duration is a time.Duration written as a Go duration string ("2s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}
