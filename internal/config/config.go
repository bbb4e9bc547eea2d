// Package config provides configuration management for the editorial workflow service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the editorial workflow service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains Temporal workflow orchestration settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Auth contains JWT authentication settings.
	Auth AuthConfig `mapstructure:"auth"`
	// Redis contains Redis cache settings for reviewer workload counts.
	Redis RedisConfig `mapstructure:"redis"`
	// Mail contains SMTP settings for reviewer and editor notifications.
	Mail MailConfig `mapstructure:"mail"`
	// Kafka contains Kafka publisher settings for the outbox pattern.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// Outbox contains outbox processor settings.
	Outbox OutboxConfig `mapstructure:"outbox"`
	// Deadlines contains deadline monitoring settings.
	Deadlines DeadlinesConfig `mapstructure:"deadlines"`
	// Reviews contains review assignment settings.
	Reviews ReviewsConfig `mapstructure:"reviews"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 50).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 10).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// TemporalConfig holds Temporal workflow configuration.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for editorial workflows.
	TaskQueue string `mapstructure:"task_queue"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// AuthConfig holds JWT authentication settings.
type AuthConfig struct {
	// Secret is the HMAC signing secret (loaded from EDITORIAL_AUTH_SECRET env var).
	Secret string `mapstructure:"-"`
	// Issuer is the expected token issuer.
	Issuer string `mapstructure:"issuer"`
	// Audience is the expected token audience.
	Audience string `mapstructure:"audience"`
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// RedisConfig holds Redis cache settings.
type RedisConfig struct {
	// Enabled controls whether the Redis workload cache is used.
	// When disabled, workload counts are computed from the database on every call.
	Enabled bool `mapstructure:"enabled"`
	// Address is the Redis server address.
	Address string `mapstructure:"address"`
	// Password is the Redis password (loaded from EDITORIAL_REDIS_PASSWORD env var).
	Password string `mapstructure:"-"`
	// DB is the Redis database number.
	DB int `mapstructure:"db"`
	// TTL is how long cached workload counts remain valid.
	TTL time.Duration `mapstructure:"ttl"`
}

// MailConfig holds SMTP settings for notifications.
type MailConfig struct {
	// Enabled controls whether email notifications are sent.
	Enabled bool `mapstructure:"enabled"`
	// Host is the SMTP server hostname.
	Host string `mapstructure:"host"`
	// Port is the SMTP server port.
	Port int `mapstructure:"port"`
	// Username is the SMTP username.
	Username string `mapstructure:"username"`
	// Password is the SMTP password (loaded from EDITORIAL_MAIL_PASSWORD env var).
	Password string `mapstructure:"-"`
	// From is the sender address for outgoing mail.
	From string `mapstructure:"from"`
	// RateLimit is the maximum messages sent per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// RateBurst is the burst size for the send rate limiter.
	RateBurst int `mapstructure:"rate_burst"`
	// Timeout is the timeout for SMTP dial and send.
	Timeout time.Duration `mapstructure:"timeout"`
}

// KafkaConfig holds Kafka publisher settings for the outbox pattern.
type KafkaConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic to publish outbox events to.
	Topic string `mapstructure:"topic"`
	// BatchSize is the maximum number of messages to batch before sending.
	BatchSize int `mapstructure:"batch_size"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// OutboxConfig holds outbox processor settings.
type OutboxConfig struct {
	// PollInterval is how often the processor polls for pending events.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// BatchSize is the number of events to process per batch.
	BatchSize int `mapstructure:"batch_size"`
	// MaxRetries is the maximum retry attempts before an event is abandoned.
	MaxRetries int `mapstructure:"max_retries"`
}

// DeadlinesConfig holds deadline monitoring settings.
type DeadlinesConfig struct {
	// SweepInterval is how often the overdue sweep runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// ReviewDuration is the default time allotted for a review.
	ReviewDuration time.Duration `mapstructure:"review_duration"`
	// RevisionDuration is the default time allotted for an author revision.
	RevisionDuration time.Duration `mapstructure:"revision_duration"`
	// DecisionDuration is the default time allotted for an editorial decision.
	DecisionDuration time.Duration `mapstructure:"decision_duration"`
	// ProductionDuration is the default time allotted for production.
	ProductionDuration time.Duration `mapstructure:"production_duration"`
}

// ReviewsConfig holds review assignment settings.
type ReviewsConfig struct {
	// DefaultMaxConcurrent is the reviewer capacity used when a profile does not set one.
	DefaultMaxConcurrent int `mapstructure:"default_max_concurrent"`
	// SuggestionLimit is the maximum number of reviewer suggestions returned.
	SuggestionLimit int `mapstructure:"suggestion_limit"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("EDITORIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/editorial-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Auth.Secret = os.Getenv("EDITORIAL_AUTH_SECRET")
	cfg.Redis.Password = os.Getenv("EDITORIAL_REDIS_PASSWORD")
	cfg.Mail.Password = os.Getenv("EDITORIAL_MAIL_PASSWORD")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "editorial")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "editorial_service")
	// Default to "require" for production security. Use EDITORIAL_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "editorial")
	v.SetDefault("temporal.task_queue", "editorial-tasks")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Auth defaults
	// The signing secret is loaded exclusively from EDITORIAL_AUTH_SECRET (see loadSecrets).
	v.SetDefault("auth.issuer", "editorial-service")
	v.SetDefault("auth.audience", "editorial-service")
	v.SetDefault("auth.token_ttl", "24h")

	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")

	// Mail defaults
	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.host", "localhost")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.from", "editorial@example.org")
	v.SetDefault("mail.rate_limit", 5.0)
	v.SetDefault("mail.rate_burst", 10)
	v.SetDefault("mail.timeout", "10s")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "events.outbox.editorial_service")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Outbox processor defaults
	v.SetDefault("outbox.poll_interval", "1s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_retries", 5)

	// Deadline defaults
	v.SetDefault("deadlines.sweep_interval", "15m")
	v.SetDefault("deadlines.review_duration", "504h")     // 21 days
	v.SetDefault("deadlines.revision_duration", "1440h")  // 60 days
	v.SetDefault("deadlines.decision_duration", "336h")   // 14 days
	v.SetDefault("deadlines.production_duration", "720h") // 30 days

	// Review defaults
	v.SetDefault("reviews.default_max_concurrent", 3)
	v.SetDefault("reviews.suggestion_limit", 10)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate auth config
	if c.Auth.Secret == "" {
		return fmt.Errorf("EDITORIAL_AUTH_SECRET must be set")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token_ttl must be positive")
	}

	// Validate mail config
	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			return fmt.Errorf("mail host is required when mail is enabled")
		}
		if c.Mail.Port <= 0 || c.Mail.Port > 65535 {
			return fmt.Errorf("invalid mail port: %d", c.Mail.Port)
		}
		if c.Mail.From == "" {
			return fmt.Errorf("mail from address is required when mail is enabled")
		}
	}

	// Validate kafka config
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}

	// Validate deadline config
	if c.Deadlines.SweepInterval <= 0 {
		return fmt.Errorf("deadline sweep_interval must be positive")
	}

	// Validate review config
	if c.Reviews.DefaultMaxConcurrent <= 0 {
		return fmt.Errorf("reviews default_max_concurrent must be positive")
	}
	if c.Reviews.SuggestionLimit <= 0 {
		return fmt.Errorf("reviews suggestion_limit must be positive")
	}

	return nil
}
