package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/leander/internal/domain"
)

func validServeConfig() Config {
	cfg := Config{
		GitHub: GitHubConfig{
			ClientID:      "cid",
			ClientSecret:  "csecret",
			CallbackURL:   "http://localhost:3000/github/login/callback",
			WebhookSecret: "whsecret",
		},
		Session: SessionConfig{Secret: "0123456789abcdef"},
	}
	applyDefaults(&cfg)
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "unknown severity default",
			mutate:  func(c *Config) { c.Parse.SeverityDefault = "unknown" },
			wantErr: false,
		},
		{
			name:    "invalid severity default",
			mutate:  func(c *Config) { c.Parse.SeverityDefault = "bug" },
			wantErr: true,
			errMsg:  "invalid parse severity_default",
		},
		{
			name:    "negative max stores",
			mutate:  func(c *Config) { c.Cache.MaxStores = -1 },
			wantErr: true,
			errMsg:  "cache max_stores must be positive",
		},
		{
			name:    "negative idle ttl",
			mutate:  func(c *Config) { c.Cache.IdleTTL = -time.Second },
			wantErr: true,
			errMsg:  "cache idle_ttl must be positive",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
			errMsg:  "invalid log level",
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
			errMsg:  "invalid log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServeConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateForServe(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing client id", func(c *Config) { c.GitHub.ClientID = "" }, "client_id is required"},
		{"missing client secret", func(c *Config) { c.GitHub.ClientSecret = "" }, "client_secret is required"},
		{"missing callback", func(c *Config) { c.GitHub.CallbackURL = "" }, "callback_url is required"},
		{"missing webhook secret", func(c *Config) { c.GitHub.WebhookSecret = "" }, "webhook_secret is required"},
		{"short session secret", func(c *Config) { c.Session.Secret = "short" }, "at least 16 characters"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
	}

	cfg := validServeConfig()
	require.NoError(t, cfg.ValidateForServe())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServeConfig()
			tt.mutate(&cfg)

			err := cfg.ValidateForServe()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ValidateForBoard(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)

	err := cfg.ValidateForBoard()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard")

	cfg.Dashboard = "dashboard.yaml"
	assert.NoError(t, cfg.ValidateForBoard())
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/github", cfg.Server.BasePath)
	assert.Equal(t, "*", cfg.Server.CORSOrigin)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "https://api.github.com/graphql", cfg.GitHub.GraphQLURL)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "leander", cfg.Session.CookieName)
	assert.Equal(t, 100, cfg.Cache.MaxStores)
	assert.Equal(t, 7*24*time.Hour, cfg.Cache.IdleTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	t.Run("base path normalized", func(t *testing.T) {
		for in, want := range map[string]string{"github/": "/github", "/": "", "/api/gh": "/api/gh"} {
			cfg := Config{Server: ServerConfig{BasePath: in}}
			applyDefaults(&cfg)
			assert.Equal(t, want, cfg.Server.BasePath, in)
		}
	})
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".leander.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
  shutdown_timeout: 5s
github:
  client_id: from-file
cache:
  max_stores: 10
  idle_ttl: 1h
parse:
  severity_default: unknown
  strict_triage: true
`), 0o600))

	t.Setenv("LEANDER_GITHUB_CLIENT_ID", "from-env")
	t.Setenv("LEANDER_SESSION_SECRET", "env-secret-0123456789")

	v := viper.New()
	Bind(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/github", cfg.Server.BasePath)
	assert.Equal(t, "from-env", cfg.GitHub.ClientID)
	assert.Equal(t, "env-secret-0123456789", cfg.Session.Secret)
	assert.Equal(t, 10, cfg.Cache.MaxStores)
	assert.Equal(t, time.Hour, cfg.Cache.IdleTTL)
	assert.True(t, cfg.Cache.Dedupe)

	policy := cfg.Policy()
	assert.Equal(t, domain.SeverityUnknown, policy.SeverityDefault)
	assert.True(t, policy.StrictTriage)
	assert.False(t, policy.SourceByAuthor)
}
