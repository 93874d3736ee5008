// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the Threadline pipeline server.
//
// Threadline ingests support messages over HTTP, fans them out through a
// durable broker to four independent AI analyzer workers, merges their
// partial results into one AggregatedIntelligence per conversation, and
// streams live updates to websocket subscribers.
//
// Initialization order:
//
//  1. Configuration: Koanf v2, layering defaults, an optional YAML file,
//     and environment variables.
//  2. Logging: zerolog, configured from Logging.
//  3. Broker: an embedded NATS/JetStream server or an external one,
//     depending on Broker.EmbeddedServer.
//  4. Model provider: a mock provider or the Anthropic provider,
//     depending on Model.Provider and Model.MockMode.
//  5. Pipeline Supervisor: builds and supervises the Processor, the four
//     Analyzer Workers, and the Aggregator.
//  6. HTTP server: the ingestion, read, and subscribe-stream routes.
//
// SIGINT and SIGTERM trigger a graceful shutdown: the HTTP server stops
// accepting new connections, the supervisor tree is canceled, and both
// are given Shutdown.GraceSeconds to finish in-flight work.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/api"
	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/modelclient"
	"github.com/threadline-dev/threadline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Bool("embedded_broker", cfg.Broker.EmbeddedServer).
		Str("model_provider", cfg.Model.Provider).
		Bool("model_mock_mode", cfg.Model.MockMode).
		Msg("starting threadline")

	adapter, stopBroker, err := newBrokerAdapter(cfg, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize broker")
	}
	defer stopBroker()

	provider, err := newModelProvider(cfg.Model)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize model provider")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup := pipeline.New(*cfg, adapter, provider, logger)
	if err := sup.Bootstrap(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to bootstrap pipeline topics")
	}

	handler := api.NewHandler(adapter, sup.Aggregator, sup.Broadcaster, cfg.Topics, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.MetricsEnabled),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	pipelineErrCh := sup.ServeBackground(ctx)

	go func() {
		logging.Info().Str("addr", httpServer.Addr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("http server stopped unexpectedly")
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Shutdown.GracePeriod())
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http server did not shut down cleanly")
	}

	select {
	case err := <-pipelineErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("pipeline supervisor error")
		}
	case <-shutdownCtx.Done():
		logging.Warn().Msg("pipeline did not stop within the grace period")
	}

	if err := sup.Shutdown(); err != nil {
		logging.Error().Err(err).Msg("error releasing pipeline resources")
	}

	logging.Info().Msg("threadline stopped gracefully")
}

// newBrokerAdapter constructs the broker.Adapter per Broker.EmbeddedServer,
// along with a cleanup func that stops an embedded server (a no-op for an
// external one, since the adapter's own Close handles that connection).
func newBrokerAdapter(cfg *config.Config, logger zerolog.Logger) (broker.Adapter, func(), error) {
	url := cfg.Broker.URL
	stop := func() {}

	if cfg.Broker.EmbeddedServer {
		embedded, err := broker.NewEmbeddedServer(broker.EmbeddedServerConfig{
			Host:              cfg.Broker.Host,
			Port:              cfg.Broker.Port,
			StoreDir:          cfg.Broker.StoreDir,
			JetStreamMaxMem:   cfg.Broker.JetStreamMaxMem,
			JetStreamMaxStore: cfg.Broker.JetStreamMaxStore,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded broker: %w", err)
		}
		url = embedded.ClientURL()
		stop = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("embedded broker did not shut down cleanly")
			}
		}
	}

	streamSubjects := []string{
		cfg.Topics.MessagesRaw,
		cfg.Topics.ConversationsState,
		cfg.Topics.AISentiment,
		cfg.Topics.AIPII,
		cfg.Topics.AIInsights,
		cfg.Topics.AISummary,
		cfg.Topics.AIAggregated,
		cfg.Topics.DLQ,
	}

	adapter, err := broker.NewNATSAdapter(broker.Config{
		URL:                 url,
		ConsumerGroupPrefix: cfg.Broker.ConsumerGroupPrefix,
		MaxReconnects:       cfg.Broker.MaxReconnects,
		ReconnectWait:       cfg.Broker.ReconnectWait,
		AckWaitTimeout:      cfg.Broker.AckWaitTimeout,
		MaxDeliver:          cfg.Broker.MaxDeliver,
		StreamReplicas:      cfg.Broker.StreamReplicas,
		StreamName:          "threadline",
		StreamSubjects:      streamSubjects,
	}, nil)
	if err != nil {
		stop()
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	return adapter, stop, nil
}

// newModelProvider constructs the Model Client's Provider. A nil return
// with no error tells modelclient.New to fall back to its mock provider,
// which it also does unconditionally when cfg.MockMode is set.
func newModelProvider(cfg config.ModelConfig) (modelclient.Provider, error) {
	if cfg.MockMode || cfg.Provider != "anthropic" {
		return nil, nil
	}
	return modelclient.NewAnthropicProvider(cfg.APIKey, "")
}
