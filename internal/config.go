package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Storage modes.
const (
	StorageModeSQLite = "sqlite"
	StorageModeAPI    = "api"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	MCP     MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.MCP.Stdio && c.Storage.Mode == StorageModeSQLite && c.Auth.Key == "" {
		return fmt.Errorf("mcp: stdio transport needs auth.key to bind the session tenant")
	}
	return nil
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

// StorageConfig selects where notes live.
//
// Mode controls the persistence backend:
//   - "sqlite" (default): a local SQLite database; this process owns the data.
//   - "api": a remote notes API; this process is a stateless bridge.
type StorageConfig struct {
	Mode   string        `yaml:"mode"`
	SQLite SQLiteConfig  `yaml:"sqlite"`
	API    BackendConfig `yaml:"api"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	// Normalise empty mode to "sqlite".
	if c.Mode == "" {
		c.Mode = StorageModeSQLite
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(StorageModeSQLite, StorageModeAPI)),
	); err != nil {
		return err
	}
	switch c.Mode {
	case StorageModeSQLite:
		return c.SQLite.Validate()
	default:
		return c.API.Validate()
	}
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

// BackendConfig holds remote notes API configuration.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the backend configuration.
func (c *BackendConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Key, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// Timeout returns the backend request timeout; zero means the client default.
func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds API-key authentication configuration. Key is the raw key
// the stdio MCP session authenticates as; the HTTP surface authenticates
// each request against the stored keys instead.
type AuthConfig struct {
	Key             string `yaml:"key"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheTTLSeconds, validation.Min(0)),
	)
}

// CacheTTL returns the verified-key cache lifetime; zero means the
// authenticator default.
func (c *AuthConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// MCPConfig holds MCP transport configuration.
type MCPConfig struct {
	Stdio bool `yaml:"stdio"`
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
		Storage: StorageConfig{
			Mode: StorageModeSQLite,
			SQLite: SQLiteConfig{
				Path: "./neemee.db",
			},
		},
		Auth: AuthConfig{
			CacheTTLSeconds: 300,
		},
	}
}
