// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides centralized configuration management for the
// pipeline via Koanf v2, layering built-in defaults, an optional YAML file,
// and environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Broker      BrokerConfig      `koanf:"broker"`
	Topics      TopicsConfig      `koanf:"topics"`
	Model       ModelConfig       `koanf:"model"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Broadcaster BroadcasterConfig `koanf:"broadcaster"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Shutdown    ShutdownConfig    `koanf:"shutdown"`
}

// BrokerConfig describes how to reach the underlying log (NATS JetStream).
type BrokerConfig struct {
	// URL is the NATS connection string, e.g. nats://localhost:4222.
	// Ignored when EmbeddedServer is true.
	URL string `koanf:"url"`
	// EmbeddedServer starts an in-process NATS/JetStream server instead of
	// dialing an external one. Intended for single-instance deployments and
	// tests.
	EmbeddedServer bool `koanf:"embedded_server"`
	// Host and Port are where the embedded server listens. Ignored when
	// EmbeddedServer is false.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// StoreDir is the JetStream file-storage directory for the embedded server.
	StoreDir          string `koanf:"store_dir"`
	JetStreamMaxMem   int64  `koanf:"jetstream_max_mem"`
	JetStreamMaxStore int64  `koanf:"jetstream_max_store"`
	// ConsumerGroupPrefix namespaces durable consumer names, letting several
	// pipeline deployments share one NATS cluster without colliding.
	ConsumerGroupPrefix string        `koanf:"consumer_group_prefix"`
	MaxReconnects       int           `koanf:"max_reconnects"`
	ReconnectWait       time.Duration `koanf:"reconnect_wait"`
	AckWaitTimeout      time.Duration `koanf:"ack_wait_timeout"`
	MaxDeliver          int           `koanf:"max_deliver"`
	StreamReplicas      int           `koanf:"stream_replicas"`
}

// TopicsConfig overrides the default broker topic names.
type TopicsConfig struct {
	MessagesRaw        string `koanf:"messages_raw"`
	ConversationsState string `koanf:"conversations_state"`
	AISentiment        string `koanf:"ai_sentiment"`
	AIPII              string `koanf:"ai_pii"`
	AIInsights         string `koanf:"ai_insights"`
	AISummary          string `koanf:"ai_summary"`
	AIAggregated       string `koanf:"ai_aggregated"`
	DLQ                string `koanf:"dlq"`
}

// ModelConfig configures the Model Client.
type ModelConfig struct {
	// MockMode makes the Model Client return deterministic canned results
	// without calling an external provider.
	MockMode bool `koanf:"mock_mode"`
	// RequestsPerMinute sizes the token bucket.
	RequestsPerMinute int `koanf:"requests_per_minute"`
	// MaxConcurrentRequests sizes the global semaphore.
	MaxConcurrentRequests int           `koanf:"max_concurrent_requests"`
	MaxRetries            int           `koanf:"max_retries"`
	InitialBackoff        time.Duration `koanf:"initial_backoff"`
	MaxBackoff            time.Duration `koanf:"max_backoff"`
	RequestTimeout        time.Duration `koanf:"request_timeout"`
	// Provider selects the backing generative model integration: "mock"
	// or "anthropic". Unrecognized values fall back to mock.
	Provider string `koanf:"provider"`
	APIKey   string `koanf:"api_key"`
}

// PipelineConfig configures the Processor and Analyzer Workers.
type PipelineConfig struct {
	RecentMessagesWindow int `koanf:"recent_messages_window"`
	// MaxRetries bounds PoisonRecord retries before a record is routed to DLQ.
	MaxRetries int `koanf:"max_retries"`
	// ContextMessages bounds how many recent messages are rendered into the
	// Model Client context when no summary is yet available.
	ContextMessages int `koanf:"context_messages"`
}

// BroadcasterConfig configures the live subscriber fan-out.
type BroadcasterConfig struct {
	SubscriberQueueDepth int           `koanf:"subscriber_queue_depth"`
	PingInterval         time.Duration `koanf:"ping_interval"`
}

// ServerConfig configures the HTTP surface for the out-of-scope ingestion,
// read, and health collaborators.
type ServerConfig struct {
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	IdleTimeout    time.Duration `koanf:"idle_timeout"`
	MetricsEnabled bool          `koanf:"metrics_enabled"`
}

// LoggingConfig configures the zerolog-backed logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ShutdownConfig configures graceful shutdown.
type ShutdownConfig struct {
	GraceSeconds int `koanf:"grace_seconds"`
}

// GracePeriod returns Shutdown.GraceSeconds as a time.Duration.
func (c ShutdownConfig) GracePeriod() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if !c.Broker.EmbeddedServer && c.Broker.URL == "" {
		return fmt.Errorf("broker.url is required unless broker.embedded_server is true")
	}
	if c.Model.RequestsPerMinute <= 0 {
		return fmt.Errorf("model.requests_per_minute must be positive, got %d", c.Model.RequestsPerMinute)
	}
	if c.Model.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("model.max_concurrent_requests must be positive, got %d", c.Model.MaxConcurrentRequests)
	}
	if c.Pipeline.RecentMessagesWindow <= 0 {
		return fmt.Errorf("pipeline.recent_messages_window must be positive, got %d", c.Pipeline.RecentMessagesWindow)
	}
	if c.Broadcaster.SubscriberQueueDepth <= 0 {
		return fmt.Errorf("broadcaster.subscriber_queue_depth must be positive, got %d", c.Broadcaster.SubscriberQueueDepth)
	}
	if c.Shutdown.GraceSeconds <= 0 {
		return fmt.Errorf("shutdown.grace_seconds must be positive, got %d", c.Shutdown.GraceSeconds)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
