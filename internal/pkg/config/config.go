package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by store.driver.
const (
	DriverMemory   = "memory"
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Video     VideoConfig     `mapstructure:"video"`
	Sessions  SessionsConfig  `mapstructure:"sessions"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

// StoreConfig selects the document store backend. Notifier is "local" or
// "nats"; nats is required when several API nodes share a backend.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Notifier  string `mapstructure:"notifier"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type VideoConfig struct {
	RawURL string `mapstructure:"raw_url"`
	AIURL  string `mapstructure:"ai_url"`
}

type SessionsConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: OCEANCLEAN_STORE_DRIVER → store.driver
	v.SetEnvPrefix("OCEANCLEAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:5173, http://localhost:8080")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.notifier", "local")
	v.SetDefault("store.key_prefix", "oceanclean:")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "oceanclean")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "oceanclean")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "drive-ramp-queue")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "oceanclean")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("video.raw_url", "/stream/raw.mjpg")
	v.SetDefault("video.ai_url", "/stream/ai.mjpg")
	v.SetDefault("sessions.idle_timeout", 30*time.Minute)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if !slices.Contains([]string{DriverMemory, DriverValkey, DriverPostgres}, c.Store.Driver) {
		errs = append(errs, fmt.Sprintf("store.driver must be memory, valkey or postgres, got %q", c.Store.Driver))
	}
	if c.Store.Notifier != "local" && c.Store.Notifier != "nats" {
		errs = append(errs, fmt.Sprintf("store.notifier must be local or nats, got %q", c.Store.Notifier))
	}

	if c.Store.Driver == DriverPostgres {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.Store.Driver == DriverValkey && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required when temporal is enabled")
	}

	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "auth.jwt_secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}
	if c.Sessions.IdleTimeout < 0 {
		errs = append(errs, "sessions.idle_timeout must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
