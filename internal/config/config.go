// Package config loads and validates referer service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database sources.
const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourceGCS      = "gcs"
)

// Event sinks.
const (
	SinkNone     = "none"
	SinkLog      = "log"
	SinkPubSub   = "pubsub"
	SinkPostgres = "postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Events    EventsConfig    `mapstructure:"events"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeout  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout_seconds"`
	MaxBatch        int `mapstructure:"max_batch"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// DatabaseConfig says where the referer database comes from.
type DatabaseConfig struct {
	Source string `mapstructure:"source"`
	// Path is the database file for the file source.
	Path string `mapstructure:"path"`
	// Bucket and Object locate the database for the gcs source. URI, a
	// gs://bucket/object reference, overrides both when set.
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
	URI    string `mapstructure:"uri"`
	// Watch reloads a file database when it changes on disk.
	Watch bool `mapstructure:"watch"`
}

// CacheConfig sizes the classifier cache.
type CacheConfig struct {
	Size int `mapstructure:"size"`
}

// EventsConfig controls classification event delivery.
type EventsConfig struct {
	Sink          string         `mapstructure:"sink"`
	QueueDepth    int            `mapstructure:"queue_depth"`
	Workers       int            `mapstructure:"workers"`
	TimeoutMillis int            `mapstructure:"timeout_ms"`
	PubSub        PubSubConfig   `mapstructure:"pubsub"`
	Postgres      PostgresConfig `mapstructure:"postgres"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// PostgresConfig controls access to the event table.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REFERER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 10)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.max_batch", 100)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("database.source", SourceEmbedded)
	v.SetDefault("database.path", "")
	v.SetDefault("database.bucket", "")
	v.SetDefault("database.object", "referers.json")
	v.SetDefault("database.uri", "")
	v.SetDefault("database.watch", false)
	v.SetDefault("cache.size", 8)
	v.SetDefault("events.sink", SinkNone)
	v.SetDefault("events.queue_depth", 1024)
	v.SetDefault("events.workers", 2)
	v.SetDefault("events.timeout_ms", 5000)
	v.SetDefault("events.pubsub.project_id", "")
	v.SetDefault("events.pubsub.topic_name", "")
	v.SetDefault("events.postgres.dsn", "")
	v.SetDefault("events.postgres.table", "referer_events")
	v.SetDefault("events.postgres.max_conns", 4)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.MaxBatch <= 0 {
		return fmt.Errorf("server.max_batch must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit.rps and rate_limit.burst must be > 0 when rate limiting is enabled")
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be > 0")
	}
	switch c.Database.Source {
	case SourceEmbedded:
	case SourceFile:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path must be set for the file source")
		}
	case SourceGCS:
		if c.Database.URI != "" {
			if !strings.HasPrefix(c.Database.URI, "gs://") {
				return fmt.Errorf("database.uri must be a gs:// uri; got %q", c.Database.URI)
			}
		} else if c.Database.Bucket == "" || c.Database.Object == "" {
			return fmt.Errorf("database.uri or database.bucket and database.object must be set for the gcs source")
		}
	default:
		return fmt.Errorf("database.source must be one of embedded, file, gcs; got %q", c.Database.Source)
	}
	switch c.Events.Sink {
	case SinkNone, SinkLog:
	case SinkPubSub:
		if c.Events.PubSub.ProjectID == "" || c.Events.PubSub.TopicName == "" {
			return fmt.Errorf("events.pubsub.project_id and events.pubsub.topic_name must be set for the pubsub sink")
		}
	case SinkPostgres:
		if c.Events.Postgres.DSN == "" {
			return fmt.Errorf("events.postgres.dsn must be set for the postgres sink")
		}
	default:
		return fmt.Errorf("events.sink must be one of none, log, pubsub, postgres; got %q", c.Events.Sink)
	}
	if c.Events.Sink != SinkNone && (c.Events.QueueDepth <= 0 || c.Events.Workers <= 0) {
		return fmt.Errorf("events.queue_depth and events.workers must be > 0 when events are enabled")
	}
	return nil
}

// RequestTimeout converts the configured request timeout to a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeout) * time.Second
}

// ShutdownTimeout converts the configured shutdown timeout to a duration.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeout) * time.Second
}

// EventTimeout converts the configured delivery timeout to a duration.
func (c Config) EventTimeout() time.Duration {
	return time.Duration(c.Events.TimeoutMillis) * time.Millisecond
}
