// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"

	"capturehub/backend/internal/db"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server listens on (e.g. :9090). Empty disables gRPC.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "production"). Selects the log encoder.
	Env string `mapstructure:"APP_ENV"`
	// DBMaxOpenConns and DBMaxIdleConns size the Postgres pool; zero uses the db package defaults.
	DBMaxOpenConns int `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int `mapstructure:"DB_MAX_IDLE_CONNS"`
	// BcryptCost is the bcrypt cost factor (4–31) for API token secrets; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// MigrateOnStart applies embedded migrations before the server starts serving.
	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`

	// SessionLifetime is how far expires_at is pushed past the last activity (e.g. "720h").
	SessionLifetime string `mapstructure:"SESSION_LIFETIME"`
	// SessionIdleThreshold is the minimum time since last activity before a refresh write happens (e.g. "5m").
	SessionIdleThreshold string `mapstructure:"SESSION_IDLE_THRESHOLD"`
	// SessionCookieName is the cookie that carries the session id.
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// SessionCookieSecure marks the session cookie Secure. Disable only for local http development.
	SessionCookieSecure bool `mapstructure:"SESSION_COOKIE_SECURE"`
	// SessionSweepInterval is how often expired sessions are deleted (e.g. "1h").
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// BackgroundWriteTimeout bounds detached writes (session refresh, token last-used, audit).
	BackgroundWriteTimeout string `mapstructure:"BACKGROUND_WRITE_TIMEOUT"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty uses no-op exporters.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("SESSION_LIFETIME", "720h") // 30d
	v.SetDefault("SESSION_IDLE_THRESHOLD", "5m")
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("SESSION_COOKIE_SECURE", true)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("BACKGROUND_WRITE_TIMEOUT", "5s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "capturehub-auth")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.SessionCookieName == "" {
		return nil, errors.New("config: SESSION_COOKIE_NAME must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.DBMaxOpenConns < 0 || cfg.DBMaxIdleConns < 0 {
		return nil, errors.New("config: DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative")
	}

	if cfg.IdleThreshold() >= cfg.Lifetime() {
		return nil, errors.New("config: SESSION_IDLE_THRESHOLD must be shorter than SESSION_LIFETIME")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DBPool returns the pool sizing for db.Open.
func (c *Config) DBPool() db.Pool {
	return db.Pool{MaxOpen: c.DBMaxOpenConns, MaxIdle: c.DBMaxIdleConns}
}

// Lifetime parses SessionLifetime as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) Lifetime() time.Duration {
	return parseDuration(c.SessionLifetime, 720*time.Hour)
}

// IdleThreshold parses SessionIdleThreshold as a time.Duration. Returns 5m if unset or invalid.
// Zero is allowed and means every request refreshes.
func (c *Config) IdleThreshold() time.Duration {
	d, err := time.ParseDuration(c.SessionIdleThreshold)
	if err != nil || d < 0 {
		return 5 * time.Minute
	}
	return d
}

// SweepInterval parses SessionSweepInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.SessionSweepInterval, time.Hour)
}

// BackgroundTimeout parses BackgroundWriteTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) BackgroundTimeout() time.Duration {
	return parseDuration(c.BackgroundWriteTimeout, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
