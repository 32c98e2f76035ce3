package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
}

// ServerConfig configures the HTTP listener and its middleware
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	StaticFilesPath string        `mapstructure:"static_path"`
	IndexFile       string        `mapstructure:"index_file"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	BodyLimit       int64         `mapstructure:"body_limit"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateWindow      time.Duration `mapstructure:"rate_window"`
}

// DatabaseConfig selects the store and tunes its connection pool
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// AuthConfig configures access token signing
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

// RedisConfig enables the shared rate limiter when Addr is set
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SeedConfig controls the sample data written at startup
type SeedConfig struct {
	Schools       bool   `mapstructure:"schools"`
	DemoUser      bool   `mapstructure:"demo_user"`
	DemoPassword  string `mapstructure:"demo_password"`
	AdminUsername string `mapstructure:"admin_username"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// CatalogueConfig points at an optional syllabus file replacing the embedded one
type CatalogueConfig struct {
	Path string `mapstructure:"path"`
}

// Address returns the listen address for the HTTP server
func (c ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads configuration from an optional config file, a .env file and
// NEOVIDYA_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("NEOVIDYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.static_path", "./public")
	v.SetDefault("server.index_file", "dash1.html")
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost:3000",
		"http://localhost:5500",
		"http://127.0.0.1:5500",
		"http://127.0.0.1:3000",
	})
	v.SetDefault("server.trusted_proxies", []string{})
	v.SetDefault("server.body_limit", 10<<20)
	v.SetDefault("server.rate_limit", 100)
	v.SetDefault("server.rate_window", 15*time.Minute)

	v.SetDefault("db.type", "sqlite")
	v.SetDefault("db.path", "./neovidya.db")
	v.SetDefault("db.url", "")
	v.SetDefault("db.busy_timeout", 3*time.Second)
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "neovidya")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("seed.schools", true)
	v.SetDefault("seed.demo_user", true)
	v.SetDefault("seed.demo_password", "1234")
	v.SetDefault("seed.admin_username", "")
	v.SetDefault("seed.admin_email", "")
	v.SetDefault("seed.admin_password", "")

	v.SetDefault("catalogue.path", "")
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be between 1 and 65535")
	}
	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "sqlite3", "":
		if c.Database.Path == "" {
			return fmt.Errorf("invalid config: db.path is required for sqlite")
		}
	case "postgres", "postgresql", "mysql":
		if c.Database.URL == "" {
			return fmt.Errorf("invalid config: db.url is required for %s", c.Database.Type)
		}
	default:
		return fmt.Errorf("invalid config: unsupported db.type %q", c.Database.Type)
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("invalid config: db.busy_timeout cannot be negative")
	}
	if c.Server.RateLimit <= 0 || c.Server.RateWindow <= 0 {
		return fmt.Errorf("invalid config: server.rate_limit and server.rate_window must be positive")
	}
	if c.Seed.AdminUsername != "" && (c.Seed.AdminEmail == "" || c.Seed.AdminPassword == "") {
		return fmt.Errorf("invalid config: seed.admin_email and seed.admin_password are required with seed.admin_username")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid config: auth.token_ttl must be positive")
	}
	return nil
}
