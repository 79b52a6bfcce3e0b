package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/robby/leander/internal/domain"
	"github.com/robby/leander/internal/parse"
)

// Config represents the full Leander configuration
type Config struct {
	Server    ServerConfig  `mapstructure:"server"`
	GitHub    GitHubConfig  `mapstructure:"github"`
	Session   SessionConfig `mapstructure:"session"`
	Cache     CacheConfig   `mapstructure:"cache"`
	Parse     ParseConfig   `mapstructure:"parse"`
	Log       LogConfig     `mapstructure:"log"`
	Dashboard string        `mapstructure:"dashboard"` // view config YAML used by `board`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BasePath        string        `mapstructure:"base_path"`
	CORSOrigin      string        `mapstructure:"cors_origin"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Debug           bool          `mapstructure:"debug"`
}

// GitHubConfig contains OAuth app, webhook, and API settings
type GitHubConfig struct {
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	CallbackURL   string `mapstructure:"callback_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	GraphQLURL    string `mapstructure:"graphql_url"`
}

// SessionConfig contains session cookie settings
type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// CacheConfig bounds the per-token store registry
type CacheConfig struct {
	MaxStores int           `mapstructure:"max_stores"`
	IdleTTL   time.Duration `mapstructure:"idle_ttl"`
	Dedupe    bool          `mapstructure:"dedupe"`
}

// ParseConfig selects how derived issue fields are computed
type ParseConfig struct {
	SeverityDefault string `mapstructure:"severity_default"`
	StrictTriage    bool   `mapstructure:"strict_triage"`
	SourceByAuthor  bool   `mapstructure:"source_by_author"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const EnvPrefix = "LEANDER"

var defaults = map[string]any{
	"server.port":             3000,
	"server.base_path":        "/github",
	"server.cors_origin":      "*",
	"server.shutdown_timeout": "30s",
	"server.debug":            false,
	"github.client_id":        "",
	"github.client_secret":    "",
	"github.callback_url":     "",
	"github.webhook_secret":   "",
	"github.graphql_url":      "https://api.github.com/graphql",
	"session.secret":          "",
	"session.max_age":         "168h",
	"session.cookie_name":     "leander",
	"session.secure_cookie":   false,
	"cache.max_stores":        100,
	"cache.idle_ttl":          "168h",
	"cache.dedupe":            true,
	"parse.severity_default":  "",
	"parse.strict_triage":     false,
	"parse.source_by_author":  false,
	"log.level":               "info",
	"log.format":              "text",
	"dashboard":               "",
}

// Bind registers every key with v so LEANDER_SERVER_PORT style variables
// override the file.
func Bind(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load loads configuration from v, or from the global viper when v is nil
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.BasePath == "" {
		cfg.Server.BasePath = "/github"
	}
	cfg.Server.BasePath = "/" + strings.Trim(cfg.Server.BasePath, "/")
	if cfg.Server.BasePath == "/" {
		cfg.Server.BasePath = ""
	}
	if cfg.Server.CORSOrigin == "" {
		cfg.Server.CORSOrigin = "*"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.GitHub.GraphQLURL == "" {
		cfg.GitHub.GraphQLURL = "https://api.github.com/graphql"
	}

	if cfg.Session.MaxAge == 0 {
		cfg.Session.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "leander"
	}

	if cfg.Cache.MaxStores == 0 {
		cfg.Cache.MaxStores = 100
	}
	if cfg.Cache.IdleTTL == 0 {
		cfg.Cache.IdleTTL = 7 * 24 * time.Hour
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate validates the settings shared by every command
func (c *Config) Validate() error {
	if c.Cache.MaxStores < 0 {
		return fmt.Errorf("cache max_stores must be positive")
	}
	if c.Cache.IdleTTL < 0 {
		return fmt.Errorf("cache idle_ttl must be positive")
	}

	switch c.Parse.SeverityDefault {
	case "", "unknown":
	default:
		return fmt.Errorf("invalid parse severity_default: %s (must be empty or unknown)", c.Parse.SeverityDefault)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	return nil
}

// ValidateForServe performs additional validation required before serving
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GitHub.ClientID == "" {
		return fmt.Errorf("github client_id is required")
	}
	if c.GitHub.ClientSecret == "" {
		return fmt.Errorf("github client_secret is required")
	}
	if c.GitHub.CallbackURL == "" {
		return fmt.Errorf("github callback_url is required")
	}
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("github webhook_secret is required")
	}
	if len(c.Session.Secret) < 16 {
		return fmt.Errorf("session secret must be at least 16 characters")
	}

	return nil
}

// ValidateForBoard performs additional validation required by `board`
func (c *Config) ValidateForBoard() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Dashboard == "" {
		return fmt.Errorf("dashboard view config is required")
	}
	return nil
}

// Policy converts the parse settings into a parse.Policy.
func (c *Config) Policy() parse.Policy {
	return parse.Policy{
		SeverityDefault: domain.Severity(c.Parse.SeverityDefault),
		StrictTriage:    c.Parse.StrictTriage,
		SourceByAuthor:  c.Parse.SourceByAuthor,
	}
}
