package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/shelf/internal/notify"
	"github.com/starford/shelf/internal/sse"
	"github.com/starford/shelf/internal/storage"
	"github.com/starford/shelf/internal/watcher"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Root    RootConfig        `yaml:"root"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Watcher WatcherConfig     `yaml:"watcher"`
	Notify  NotifyConfig      `yaml:"notify"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Root.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Watcher.Validate(); err != nil {
		return err
	}
	if err := c.Notify.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RootConfig holds the folder whose markdown files are indexed.
type RootConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the root configuration.
func (c *RootConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// WatcherConfig tunes the file watcher.
type WatcherConfig struct {
	BufferSize int `yaml:"buffer_size"`
	// Ignore holds glob patterns matched against each path component.
	Ignore []string `yaml:"ignore"`
}

// Validate validates the watcher configuration.
func (c *WatcherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BufferSize, validation.Required, validation.Min(1)),
	)
}

// Watcher converts the section to a watcher.Config.
func (c *WatcherConfig) Watcher() watcher.Config {
	return watcher.Config{BufferSize: c.BufferSize, Ignore: c.Ignore}
}

// NotifyConfig tunes notification rate limiting.
type NotifyConfig struct {
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
	Cooldown      time.Duration `yaml:"cooldown"`
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Validate validates the notify configuration.
func (c *NotifyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RatePerSecond, validation.Required, validation.Min(0.001)),
		validation.Field(&c.Burst, validation.Required, validation.Min(1)),
		validation.Field(&c.Cooldown, validation.Min(time.Duration(0))),
		validation.Field(&c.Heartbeat, validation.Min(time.Duration(0))),
	)
}

// Notifier converts the section to a notify.Config.
func (c *NotifyConfig) Notifier() notify.Config {
	return notify.Config{RatePerSecond: c.RatePerSecond, Burst: c.Burst, Cooldown: c.Cooldown}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DefaultIgnore skips VCS metadata, editor swap files and the temporary files
// left by atomic writes.
var DefaultIgnore = []string{".git", "*.swp", "*~", ".#*", storage.TempPrefix + "*"}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Root: RootConfig{
			Path: "./shelf",
		},
		SQLite: SQLiteConfig{
			Path: "./shelf.db",
		},
		Watcher: WatcherConfig{
			BufferSize: watcher.DefaultBufferSize,
			Ignore:     DefaultIgnore,
		},
		Notify: NotifyConfig{
			RatePerSecond: notify.DefaultRatePerSecond,
			Burst:         notify.DefaultBurst,
			Cooldown:      notify.DefaultCooldown,
			Heartbeat:     sse.DefaultHeartbeat,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
