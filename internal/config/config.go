package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Business  BusinessConfig
	Health    HealthConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port              string
	Host              string
	Env               string
	ReadTimeout       string
	WriteTimeout      string
	RequestsPerMinute int
}

type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

// RedisConfig is optional; an empty Addr disables the cache and the shared rate limiter.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL string
}

type SchedulerConfig struct {
	ReconcileCron string
	Timezone      string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type BusinessConfig struct {
	MaxDurationMonths    int
	AllocationMaxRetries int
}

type HealthConfig struct {
	Timeout string
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// Load reads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Values already present in the environment win over the .env file
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "10s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	v.SetDefault("REQUESTS_PER_MINUTE", 120)
	v.SetDefault("DATABASE_DRIVER", "postgres")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SCHEDULE_CACHE_TTL", "10m")
	v.SetDefault("RECONCILE_CRON", "0 2 * * *")
	v.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MAX_DURATION_MONTHS", 600)
	v.SetDefault("ALLOCATION_MAX_RETRIES", 3)
	v.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")
	v.SetDefault("OTEL_SERVICE_NAME", "loan-engine")

	v.AutomaticEnv()

	config := &Config{
		Server: ServerConfig{
			Port:              v.GetString("SERVER_PORT"),
			Host:              v.GetString("SERVER_HOST"),
			Env:               v.GetString("ENV"),
			ReadTimeout:       v.GetString("SERVER_READ_TIMEOUT"),
			WriteTimeout:      v.GetString("SERVER_WRITE_TIMEOUT"),
			RequestsPerMinute: v.GetInt("REQUESTS_PER_MINUTE"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DATABASE_DRIVER")),
			URL:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DATABASE_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetString("SCHEDULE_CACHE_TTL"),
		},
		Scheduler: SchedulerConfig{
			ReconcileCron: v.GetString("RECONCILE_CRON"),
			Timezone:      v.GetString("SCHEDULER_TIMEZONE"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Business: BusinessConfig{
			MaxDurationMonths:    v.GetInt("MAX_DURATION_MONTHS"),
			AllocationMaxRetries: v.GetInt("ALLOCATION_MAX_RETRIES"),
		},
		Health: HealthConfig{
			Timeout: v.GetString("HEALTH_CHECK_TIMEOUT"),
		},
		Tracing: TracingConfig{
			Endpoint:    v.GetString("OTEL_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite3" {
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite3, got %q", c.Database.Driver)
	}

	if c.Business.MaxDurationMonths <= 0 {
		return fmt.Errorf("MAX_DURATION_MONTHS must be greater than 0")
	}

	if c.Business.AllocationMaxRetries < 0 {
		return fmt.Errorf("ALLOCATION_MAX_RETRIES must not be negative")
	}

	if c.Server.RequestsPerMinute < 0 {
		return fmt.Errorf("REQUESTS_PER_MINUTE must not be negative")
	}

	durations := map[string]string{
		"SERVER_READ_TIMEOUT":        c.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":       c.Server.WriteTimeout,
		"DATABASE_CONN_MAX_LIFETIME": c.Database.ConnMaxLifetime,
		"SCHEDULE_CACHE_TTL":         c.Redis.CacheTTL,
		"HEALTH_CHECK_TIMEOUT":       c.Health.Timeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s must be a valid duration: %w", key, err)
		}
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("SCHEDULER_TIMEZONE must be a valid location: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// RedisEnabled reports whether a redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func (c *Config) GetReadTimeout() time.Duration {
	return mustDuration(c.Server.ReadTimeout)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return mustDuration(c.Server.WriteTimeout)
}

func (c *Config) GetConnMaxLifetime() time.Duration {
	return mustDuration(c.Database.ConnMaxLifetime)
}

// GetScheduleCacheTTL returns how long a cached schedule stays valid
func (c *Config) GetScheduleCacheTTL() time.Duration {
	return mustDuration(c.Redis.CacheTTL)
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	return mustDuration(c.Health.Timeout)
}

// GetSchedulerLocation returns the location cron expressions are evaluated in
func (c *Config) GetSchedulerLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate has already rejected malformed values
func mustDuration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
