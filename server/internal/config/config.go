package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultRegistryDriver    = "memory"
	DefaultSQLitePath        = "synthetics-rules.db"
	DefaultConnectorSource   = "static"
	DefaultConnectorTimeout  = 10 * time.Second
	DefaultSettingsPath      = "settings.yaml"
	DefaultSubjectPrefix     = "synthetics.default_alerts"
	DefaultBroadcastInterval = 5 * time.Second
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates REST and WebSocket clients.
	Auth AuthConfig `yaml:"auth"`

	// Registry selects where rules are stored.
	Registry RegistryConfig `yaml:"registry"`

	// Connectors selects where action connectors are listed from.
	Connectors ConnectorsConfig `yaml:"connectors"`

	// Settings locates the dynamic settings file.
	Settings SettingsConfig `yaml:"settings"`

	// Events configures rule lifecycle event publishing. Disabled when the
	// NATS URL resolves empty.
	Events EventsConfig `yaml:"events"`

	// BroadcastInterval is how often the WebSocket hub pushes the default
	// rule status to clients (default 5s).
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// SetupOnStart provisions missing default rules when the server starts.
	SetupOnStart *bool `yaml:"setup_on_start"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// RegistryConfig selects the rules registry.
type RegistryConfig struct {
	// Driver is one of: memory | sqlite | postgres.
	Driver string `yaml:"driver"`

	// Path is the SQLite database file (driver sqlite).
	Path string `yaml:"path"`

	// DSNEnv names the environment variable holding the Postgres DSN
	// (driver postgres).
	DSNEnv string `yaml:"dsn_env"`
}

// DSN returns the Postgres DSN resolved from the environment.
func (r RegistryConfig) DSN() string {
	if r.DSNEnv == "" {
		return ""
	}
	return os.Getenv(r.DSNEnv)
}

// ConnectorsConfig selects the action connector registry.
type ConnectorsConfig struct {
	// Source is one of: static | http.
	Source string `yaml:"source"`

	// Endpoint is the base URL of the actions API (source http).
	Endpoint string `yaml:"endpoint"`

	// APIKeyEnv names the environment variable holding the actions API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Header carries the API key. Defaults to "x-api-key".
	Header string `yaml:"header"`

	// Timeout bounds each actions API request (default 10s).
	Timeout time.Duration `yaml:"timeout"`

	// Static lists connectors served when Source is static.
	Static []types.Connector `yaml:"static"`
}

// APIKey returns the actions API key resolved from the environment.
func (c ConnectorsConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// EffectiveHeader returns the configured header name, or "x-api-key".
func (c ConnectorsConfig) EffectiveHeader() string {
	if c.Header != "" {
		return c.Header
	}
	return "x-api-key"
}

// SettingsConfig locates the settings file.
type SettingsConfig struct {
	// Path is the YAML settings file (default settings.yaml).
	Path string `yaml:"path"`

	// Watch re-runs the default rule update whenever the file changes.
	Watch bool `yaml:"watch"`
}

// EventsConfig configures NATS event publishing.
type EventsConfig struct {
	// NATSURLEnv names the environment variable holding the NATS URL.
	NATSURLEnv string `yaml:"nats_url_env"`

	// SubjectPrefix prefixes event subjects (default synthetics.default_alerts).
	SubjectPrefix string `yaml:"subject_prefix"`
}

// NATSURL returns the NATS URL resolved from the environment.
func (e EventsConfig) NATSURL() string {
	if e.NATSURLEnv == "" {
		return ""
	}
	return os.Getenv(e.NATSURLEnv)
}

// ShouldSetupOnStart reports whether default rules are provisioned at start.
// Defaults to true.
func (s ServerConfig) ShouldSetupOnStart() bool {
	return s.SetupOnStart == nil || *s.SetupOnStart
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Registry: RegistryConfig{
				Driver: DefaultRegistryDriver,
				Path:   DefaultSQLitePath,
			},
			Connectors: ConnectorsConfig{
				Source:  DefaultConnectorSource,
				Timeout: DefaultConnectorTimeout,
			},
			Settings: SettingsConfig{
				Path: DefaultSettingsPath,
			},
			Events: EventsConfig{
				SubjectPrefix: DefaultSubjectPrefix,
			},
			BroadcastInterval: DefaultBroadcastInterval,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	switch s.Registry.Driver {
	case "memory":
	case "sqlite":
		if s.Registry.Path == "" {
			return fmt.Errorf("server.registry.path is required for driver sqlite")
		}
	case "postgres":
		if s.Registry.DSNEnv == "" {
			return fmt.Errorf("server.registry.dsn_env is required for driver postgres")
		}
	default:
		return fmt.Errorf("server.registry.driver %q unknown: want memory|sqlite|postgres", s.Registry.Driver)
	}
	switch s.Connectors.Source {
	case "static":
	case "http":
		if s.Connectors.Endpoint == "" {
			return fmt.Errorf("server.connectors.endpoint is required for source http")
		}
	default:
		return fmt.Errorf("server.connectors.source %q unknown: want static|http", s.Connectors.Source)
	}
	seen := make(map[string]bool, len(s.Connectors.Static))
	for i, c := range s.Connectors.Static {
		if c.ID == "" {
			return fmt.Errorf("server.connectors.static[%d].id is required", i)
		}
		if c.ConnectorTypeID == "" {
			return fmt.Errorf("server.connectors.static[%d].type is required", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("server.connectors.static: duplicate id %q", c.ID)
		}
		seen[c.ID] = true
	}
	if s.Connectors.Timeout < 0 {
		return fmt.Errorf("server.connectors.timeout must not be negative")
	}
	if s.Settings.Path == "" {
		return fmt.Errorf("server.settings.path is required")
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	return nil
}
