// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/threadline/config.yaml",
	"/etc/threadline/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			Host:                "127.0.0.1",
			Port:                4222,
			StoreDir:            "/data/nats/jetstream",
			JetStreamMaxMem:     64 * 1024 * 1024,
			JetStreamMaxStore:   1024 * 1024 * 1024,
			ConsumerGroupPrefix: "threadline",
			MaxReconnects:       -1,
			ReconnectWait:       2 * time.Second,
			AckWaitTimeout:      30 * time.Second,
			MaxDeliver:          5,
			StreamReplicas:      1,
		},
		Topics: TopicsConfig{
			MessagesRaw:        "messages.raw",
			ConversationsState: "conversations.state",
			AISentiment:        "ai.sentiment",
			AIPII:              "ai.pii",
			AIInsights:         "ai.insights",
			AISummary:          "ai.summary",
			AIAggregated:       "ai.aggregated",
			DLQ:                "messages.dlq",
		},
		Model: ModelConfig{
			MockMode:              true,
			RequestsPerMinute:     60,
			MaxConcurrentRequests: 8,
			MaxRetries:            3,
			InitialBackoff:        2 * time.Second,
			MaxBackoff:            10 * time.Second,
			RequestTimeout:        20 * time.Second,
			Provider:              "mock",
		},
		Pipeline: PipelineConfig{
			RecentMessagesWindow: 10,
			MaxRetries:           3,
			ContextMessages:      10,
		},
		Broadcaster: BroadcasterConfig{
			SubscriberQueueDepth: 64,
			PingInterval:         30 * time.Second,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8085,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MetricsEnabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Shutdown: ShutdownConfig{
			GraceSeconds: 30,
		},
	}
}

// Load loads configuration from three layered sources, lowest to highest
// priority: built-in defaults, an optional YAML file, then environment
// variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps unprefixed environment variable names (matched
// case-insensitively) to koanf dotted paths, e.g. BROKER_URL -> broker.url, MODEL_MOCK_MODE ->
// model.mock_mode. Unmapped variables are dropped so unrelated process
// environment never leaks into configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	mappings := map[string]string{
		"broker_url":                   "broker.url",
		"broker_embedded_server":       "broker.embedded_server",
		"broker_host":                  "broker.host",
		"broker_port":                  "broker.port",
		"broker_store_dir":             "broker.store_dir",
		"broker_jetstream_max_mem":     "broker.jetstream_max_mem",
		"broker_jetstream_max_store":   "broker.jetstream_max_store",
		"broker_consumer_group_prefix": "broker.consumer_group_prefix",
		"broker_max_reconnects":        "broker.max_reconnects",
		"broker_reconnect_wait":        "broker.reconnect_wait",
		"broker_ack_wait_timeout":      "broker.ack_wait_timeout",
		"broker_max_deliver":           "broker.max_deliver",
		"broker_stream_replicas":       "broker.stream_replicas",

		"topic_messages_raw":        "topics.messages_raw",
		"topic_conversations_state": "topics.conversations_state",
		"topic_ai_sentiment":        "topics.ai_sentiment",
		"topic_ai_pii":              "topics.ai_pii",
		"topic_ai_insights":         "topics.ai_insights",
		"topic_ai_summary":          "topics.ai_summary",
		"topic_ai_aggregated":       "topics.ai_aggregated",
		"topic_dlq":                 "topics.dlq",

		"model_mock_mode":               "model.mock_mode",
		"model_requests_per_minute":     "model.requests_per_minute",
		"model_max_concurrent_requests": "model.max_concurrent_requests",
		"model_max_retries":             "model.max_retries",
		"model_initial_backoff":         "model.initial_backoff",
		"model_max_backoff":             "model.max_backoff",
		"model_request_timeout":         "model.request_timeout",
		"model_provider":                "model.provider",
		"model_api_key":                 "model.api_key",

		"pipeline_recent_messages_window": "pipeline.recent_messages_window",
		"pipeline_max_retries":            "pipeline.max_retries",
		"pipeline_context_messages":       "pipeline.context_messages",

		"broadcaster_subscriber_queue_depth": "broadcaster.subscriber_queue_depth",
		"broadcaster_ping_interval":          "broadcaster.ping_interval",

		"http_host":          "server.host",
		"http_port":          "server.port",
		"http_read_timeout":  "server.read_timeout",
		"http_write_timeout": "server.write_timeout",
		"http_idle_timeout":  "server.idle_timeout",
		"metrics_enabled":    "server.metrics_enabled",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"shutdown_grace_seconds": "shutdown.grace_seconds",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
