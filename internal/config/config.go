// Package config defines service configuration and its loading order:
// defaults, then an optional YAML file, then VENTURES_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	DB       DBConfig       `koanf:"db"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	Ventures VenturesConfig `koanf:"ventures"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracing  TracingConfig  `koanf:"tracing"`
}

type HTTPConfig struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr            string        `koanf:"addr"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type GRPCConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

type DBConfig struct {
	// Driver is one of mysql, postgres, sqlite3.
	Driver          string        `koanf:"driver"`
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Addr           string        `koanf:"addr"`
	PoolSize       int           `koanf:"pool_size"`
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
}

type LogConfig struct {
	// Mode is "dev" or "prod".
	Mode  string `koanf:"mode"`
	Level string `koanf:"level"`
}

type VenturesConfig struct {
	// Submolt is the feed announcement posts are published to.
	Submolt string `koanf:"submolt"`
	// TrustedVerifierID, when set, signs off shipments instead of the founder.
	TrustedVerifierID string `koanf:"trusted_verifier_id"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type TracingConfig struct {
	Enabled bool `koanf:"enabled"`
	// Endpoint is the OTLP/HTTP collector address; empty exports to stdout.
	Endpoint    string  `koanf:"endpoint"`
	Insecure    bool    `koanf:"insecure"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			CORSOrigins:     []string{"http://localhost:3000"},
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{
			Enabled: true,
			Addr:    ":50051",
		},
		DB: DBConfig{
			Driver:          "mysql",
			DSN:             "root:root@tcp(localhost:3306)/ventures?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Addr:           "localhost:6379",
			PoolSize:       100,
			IdempotencyTTL: 24 * time.Hour,
		},
		Auth: AuthConfig{
			Issuer: "ventures",
		},
		Log: LogConfig{
			Mode:  "dev",
			Level: "info",
		},
		Ventures: VenturesConfig{
			Submolt: "ventures",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			SampleRatio: 0.1,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr must not be empty", ErrInvalidConfig)
	}
	if c.GRPC.Enabled && c.GRPC.Addr == "" {
		return fmt.Errorf("%w: grpc.addr must not be empty when grpc is enabled", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DB.Driver) {
	case "mysql", "postgres", "postgresql", "pgx", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: unsupported db.driver %q", ErrInvalidConfig, c.DB.Driver)
	}
	if c.DB.DSN == "" && !strings.HasPrefix(strings.ToLower(c.DB.Driver), "sqlite") {
		return fmt.Errorf("%w: db.dsn must not be empty", ErrInvalidConfig)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr must not be empty when redis is enabled", ErrInvalidConfig)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: auth.jwt_secret must be set", ErrInvalidConfig)
	}
	if c.Ventures.Submolt == "" {
		return fmt.Errorf("%w: ventures.submolt must not be empty", ErrInvalidConfig)
	}
	return nil
}
