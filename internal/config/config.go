package config

import (
	"errors"
	"strings"
	"time"

	gwerrors "github.com/notihub/gateway/internal/domain/errors"
	"github.com/spf13/viper"
)

// Config is the main struct that holds all configuration for the application.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Push     PushConfig     `mapstructure:"push"`
	Email    EmailConfig    `mapstructure:"email"`
}

// LoggerConfig holds logging-specific settings.
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// HTTPConfig holds the ingestion HTTP server's settings.
type HTTPConfig struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

// WorkerConfig holds the delivery worker's settings.
type WorkerConfig struct {
	StatusPort   string        `mapstructure:"status_port"`
	GinMode      string        `mapstructure:"gin_mode"`
	IdleBackoff  time.Duration `mapstructure:"idle_backoff"`
	MailboxDepth int           `mapstructure:"mailbox_depth"`
}

// PostgresConfig holds all settings for the PostgreSQL connection pool.
// DSN is sourced from the required DATABASE_URL environment variable.
type PostgresConfig struct {
	DSN  string     `mapstructure:"dsn"`
	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig defines the connection pool settings for the database.
type PoolConfig struct {
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MaxIdleConns    int32         `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RabbitMQConfig holds settings for the best-effort audit event publisher.
// DSN is sourced from the optional RABBITMQ_URL environment variable; when
// empty, audit publishing is disabled and a warning is logged once at
// startup instead of failing the process.
type RabbitMQConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig holds settings for the queue/cache backend. URL is sourced
// from the required REDIS_URL environment variable and parsed with
// redis.ParseURL.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// QueueConfig holds the main queue key. Key is sourced from the required
// QUEUE_KEY environment variable; the dead-letter queue key is derived by
// appending "_failed".
type QueueConfig struct {
	Key string `mapstructure:"key"`
}

// PushConfig holds settings for the push (cloud messaging) channel.
type PushConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// EmailConfig holds settings for the email (transactional mail) channel.
type EmailConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// NewConfig parses an optional YAML file plus environment variables into a
// Config. Environment variables recognized by the core (DATABASE_URL,
// REDIS_URL, QUEUE_KEY, GOOGLE_APPLICATION_CREDENTIALS, PROJECT_ID,
// SENDGRID_API_KEY, RABBITMQ_URL) are bound explicitly, since they don't
// follow the section.key -> SECTION_KEY convention the rest of the config
// uses.
func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetDefault("logger.level", "info")
	v.SetDefault("http.port", ":8080")
	v.SetDefault("http.gin_mode", "release")
	v.SetDefault("worker.status_port", ":8081")
	v.SetDefault("worker.gin_mode", "release")
	v.SetDefault("worker.idle_backoff", 10*time.Second)
	v.SetDefault("worker.mailbox_depth", 256)
	v.SetDefault("postgres.pool.max_open_conns", 10)
	v.SetDefault("postgres.pool.max_idle_conns", 5)
	v.SetDefault("postgres.pool.conn_max_lifetime", time.Hour)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("postgres.dsn", "DATABASE_URL")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("queue.key", "QUEUE_KEY")
	_ = v.BindEnv("push.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("push.project_id", "PROJECT_ID")
	_ = v.BindEnv("email.api_key", "SENDGRID_API_KEY")
	_ = v.BindEnv("rabbitmq.dsn", "RABBITMQ_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validateRequired(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateRequired checks the environment variables the core treats as
// fatal-if-unset (spec.md's MissingEnvError). RABBITMQ_URL is intentionally
// not required here: the audit publisher degrades to a no-op when absent.
func (c *Config) validateRequired() error {
	if c.Postgres.DSN == "" {
		return gwerrors.MissingEnv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		return gwerrors.MissingEnv("REDIS_URL")
	}
	if c.Queue.Key == "" {
		return gwerrors.MissingEnv("QUEUE_KEY")
	}
	return nil
}
