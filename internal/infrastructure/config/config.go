package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Viewer    ViewerConfig
	Diagram   DiagramConfig
	Source    SourceConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8000"`
	Host        string   `envconfig:"HOST" default:"127.0.0.1"`
	// CORSOrigins lists browser origins allowed to call the server and open
	// the stream. Empty means same-origin only; "*" allows any.
	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for HTTP requests and
// inbound channel messages.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// ViewerConfig holds session defaults.
type ViewerConfig struct {
	MaxTabs        int    `envconfig:"LENS_MAX_TABS" default:"10"`
	SettingsPath   string `envconfig:"LENS_SETTINGS_PATH" default:"lens-settings.yaml"`
	Highlight      bool   `envconfig:"LENS_HIGHLIGHT" default:"true"`
	HighlightStyle string `envconfig:"LENS_HIGHLIGHT_STYLE" default:"github"`
	ResourcePrefix string `envconfig:"LENS_RESOURCE_PREFIX" default:"/resource/"`
}

// DiagramConfig holds diagram sandbox configuration. An empty Script
// disables diagram rendering; containers then report an error in place.
type DiagramConfig struct {
	Script   string        `envconfig:"LENS_DIAGRAM_SCRIPT"`
	Timeout  time.Duration `envconfig:"LENS_DIAGRAM_TIMEOUT" default:"5s"`
	PoolSize int           `envconfig:"LENS_DIAGRAM_POOL" default:"2"`
}

// SourceConfig holds document source configuration.
type SourceConfig struct {
	Roots            []string `envconfig:"LENS_ROOTS" default:"."`
	Watch            bool     `envconfig:"LENS_WATCH" default:"true"`
	MaxDocumentBytes int64    `envconfig:"LENS_MAX_DOCUMENT_BYTES" default:"10485760"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8000",
			Host:        "127.0.0.1",
			CORSOrigins: nil,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Viewer: ViewerConfig{
			MaxTabs:        10,
			SettingsPath:   "lens-settings.yaml",
			Highlight:      true,
			HighlightStyle: "github",
			ResourcePrefix: "/resource/",
		},
		Diagram: DiagramConfig{
			Timeout:  5 * time.Second,
			PoolSize: 2,
		},
		Source: SourceConfig{
			Roots:            []string{"."},
			Watch:            true,
			MaxDocumentBytes: 10 * 1024 * 1024,
		},
	}
}
