package internal

import (
	"fmt"
	"log/slog"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

var redisURLPattern = regexp.MustCompile(`^(redis|rediss|unix)://`)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Frames  FramesConfig      `yaml:"frames"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Trigger TriggerConfig     `yaml:"trigger"`
	Export  ExportConfig      `yaml:"export"`
	Hash    HashConfig        `yaml:"hash"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Frames.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Trigger.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	return c.Hash.Validate()
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

// FramesConfig locates the frame document.
type FramesConfig struct {
	Path string `yaml:"path"`
	// Watch reloads the document when it changes on disk.
	Watch bool `yaml:"watch"`
}

// Validate validates the frames configuration.
func (c *FramesConfig) Validate() error {
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

// TriggerConfig configures the Redis identifier stream. An empty RedisURL
// disables it; SSE clients are notified either way.
type TriggerConfig struct {
	RedisURL string `yaml:"redis_url"`
	Key      string `yaml:"key"`
	Channel  string `yaml:"channel"`
}

// Validate validates the trigger configuration.
func (c *TriggerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RedisURL, validation.Match(redisURLPattern).Error("must be a redis:// URL")),
		validation.Field(&c.Key, validation.When(c.RedisURL != "", validation.Required)),
	)
}

// Enabled reports whether identifiers are streamed to Redis.
func (c *TriggerConfig) Enabled() bool {
	return c.RedisURL != ""
}

// ExportConfig holds the export sink directory.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// HashConfig tunes batch hashing.
type HashConfig struct {
	Workers int `yaml:"workers"`
}

// Validate validates the hash configuration.
func (c *HashConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(256)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Frames: FramesConfig{
			Path:  "./config/frames.yaml",
			Watch: true,
		},
		SQLite: SQLiteConfig{
			Path: "./trihash.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Trigger: TriggerConfig{
			Key: "trihash:identifiers",
		},
		Export: ExportConfig{
			Dir: "./exports",
		},
		Hash: HashConfig{
			Workers: 4,
		},
	}
}
