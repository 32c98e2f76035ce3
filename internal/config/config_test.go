package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("NEOVIDYA_AUTH_JWT_SECRET", "a-very-long-test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 3*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 100, cfg.Server.RateLimit)
	assert.Equal(t, 15*time.Minute, cfg.Server.RateWindow)
	assert.Equal(t, int64(10<<20), cfg.Server.BodyLimit)
	assert.True(t, cfg.Seed.DemoUser)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, ":3000", cfg.Server.Address())
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
  trusted_proxies:
    - 10.0.0.0/8
    - 127.0.0.1
db:
  type: sqlite
  path: /tmp/test.db
  busy_timeout: 5s
auth:
  jwt_secret: file-secret-long-enough
log:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("NEOVIDYA_LOG_FORMAT", "console")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 3000, RateLimit: 10, RateWindow: time.Minute},
			Database: DatabaseConfig{Type: "sqlite", Path: "x.db"},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef", TokenTTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "unknown db type", mutate: func(c *Config) { c.Database.Type = "oracle" }, wantErr: true},
		{name: "postgres without url", mutate: func(c *Config) { c.Database.Type = "postgres" }, wantErr: true},
		{name: "postgres with url", mutate: func(c *Config) {
			c.Database.Type = "postgres"
			c.Database.URL = "postgres://localhost/neovidya"
		}},
		{name: "zero rate limit", mutate: func(c *Config) { c.Server.RateLimit = 0 }, wantErr: true},
		{name: "zero token ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
