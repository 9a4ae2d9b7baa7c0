package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Database.Source != SourceEmbedded || cfg.Events.Sink != SinkNone {
		t.Fatalf("expected embedded database and no sink, got %+v", cfg)
	}
	if got := cfg.RequestTimeout(); got != 10*time.Second {
		t.Fatalf("expected 10s request timeout, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 3
  shutdown_timeout_seconds: 7
  max_batch: 25
auth:
  enabled: true
  api_key: secret
rate_limit:
  enabled: true
  rps: 5
  burst: 10
logging:
  development: false
  level: warn
database:
  source: gcs
  bucket: referer-data
  object: db/referers.yml
cache:
  size: 3
events:
  sink: pubsub
  queue_depth: 64
  workers: 4
  timeout_ms: 250
  pubsub:
    project_id: analytics
    topic_name: referer-events
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 || cfg.Server.MaxBatch != 25 {
		t.Fatalf("expected server overrides to apply: %+v", cfg.Server)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 10 {
		t.Fatalf("expected rate limit overrides: %+v", cfg.RateLimit)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected production logging at warn: %+v", cfg.Logging)
	}
	if cfg.Database.Source != SourceGCS || cfg.Database.Bucket != "referer-data" || cfg.Database.Object != "db/referers.yml" {
		t.Fatalf("expected gcs database: %+v", cfg.Database)
	}
	if cfg.Cache.Size != 3 {
		t.Fatalf("expected cache size 3, got %d", cfg.Cache.Size)
	}
	if cfg.Events.Sink != SinkPubSub || cfg.Events.PubSub.TopicName != "referer-events" || cfg.Events.Workers != 4 {
		t.Fatalf("expected pubsub events: %+v", cfg.Events)
	}
	if got := cfg.RequestTimeout(); got != 3*time.Second {
		t.Fatalf("expected 3s request timeout, got %v", got)
	}
	if got := cfg.ShutdownTimeout(); got != 7*time.Second {
		t.Fatalf("expected 7s shutdown timeout, got %v", got)
	}
	if got := cfg.EventTimeout(); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms event timeout, got %v", got)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("REFERER_SERVER_PORT", "7070")
	t.Setenv("REFERER_DATABASE_SOURCE", "file")
	t.Setenv("REFERER_DATABASE_PATH", "/etc/referer/referers.json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Database.Source != SourceFile || cfg.Database.Path != "/etc/referer/referers.json" {
		t.Fatalf("expected file database from env: %+v", cfg.Database)
	}
}

func TestLoadDatabaseURI(t *testing.T) {
	t.Setenv("REFERER_DATABASE_SOURCE", "gcs")
	t.Setenv("REFERER_DATABASE_URI", "gs://referer-data/db/referers.yml")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.URI != "gs://referer-data/db/referers.yml" || cfg.Database.Bucket != "" {
		t.Fatalf("expected gcs uri from env: %+v", cfg.Database)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:   ServerConfig{Port: 8080, MaxBatch: 10},
		Cache:    CacheConfig{Size: 1},
		Database: DatabaseConfig{Source: SourceEmbedded},
		Events:   EventsConfig{Sink: SinkNone},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid batch", func(c *Config) { c.Server.MaxBatch = 0 }, "server.max_batch"},
		{"auth missing api key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"rate limit without rps", func(c *Config) { c.RateLimit.Enabled = true }, "rate_limit"},
		{"invalid cache size", func(c *Config) { c.Cache.Size = 0 }, "cache.size"},
		{"file without path", func(c *Config) { c.Database.Source = SourceFile }, "database.path"},
		{"gcs without bucket", func(c *Config) { c.Database.Source = SourceGCS }, "database.bucket"},
		{"gcs uri without scheme", func(c *Config) {
			c.Database.Source = SourceGCS
			c.Database.URI = "bucket/referers.json"
		}, "database.uri"},
		{"unknown source", func(c *Config) { c.Database.Source = "s3" }, "database.source"},
		{"pubsub without topic", func(c *Config) { c.Events.Sink = SinkPubSub }, "events.pubsub"},
		{"postgres without dsn", func(c *Config) { c.Events.Sink = SinkPostgres }, "events.postgres.dsn"},
		{"unknown sink", func(c *Config) { c.Events.Sink = "kafka" }, "events.sink"},
		{"log sink without workers", func(c *Config) { c.Events.Sink = SinkLog }, "events.queue_depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
