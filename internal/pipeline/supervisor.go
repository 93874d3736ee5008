// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/threadline-dev/threadline/internal/aggregator"
	"github.com/threadline-dev/threadline/internal/analyzer"
	"github.com/threadline-dev/threadline/internal/broadcaster"
	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/modelclient"
	"github.com/threadline-dev/threadline/internal/processor"
)

// Supervisor owns and supervises every pipeline stage behind a three-tier
// suture.Supervisor tree.
type Supervisor struct {
	root      *suture.Supervisor
	ingest    *suture.Supervisor
	analysis  *suture.Supervisor
	aggregate *suture.Supervisor

	broker      broker.Adapter
	modelClient modelclient.Client
	Aggregator  *aggregator.Aggregator
	Broadcaster *broadcaster.Hub
	topics      config.TopicsConfig
}

// New constructs the Supervisor and every stage it manages, but does not
// start anything; call Bootstrap then Serve/ServeBackground.
func New(cfg config.Config, adapter broker.Adapter, provider modelclient.Provider, logger zerolog.Logger) *Supervisor {
	slogger := logging.NewSlogLogger()
	hook := (&sutureslog.Handler{Logger: slogger}).MustHook()

	spec := suture.Spec{EventHook: hook}
	root := suture.New("threadline", spec)
	ingest := suture.New("ingest-layer", suture.Spec{})
	analysis := suture.New("analysis-layer", suture.Spec{})
	aggregate := suture.New("aggregation-layer", suture.Spec{})
	root.Add(ingest)
	root.Add(analysis)
	root.Add(aggregate)

	modelClient := modelclient.New(cfg.Model, provider, logger)
	hub := broadcaster.NewHub(cfg.Broadcaster, logger)
	agg := aggregator.New(cfg.Topics, adapter, hub.Publish, logger)

	proc := processor.New(cfg.Pipeline, cfg.Topics, adapter, logger)
	ingest.Add(proc)

	analysis.Add(analyzer.NewSentimentWorker(cfg.Pipeline, cfg.Topics, adapter, modelClient, logger))
	analysis.Add(analyzer.NewPIIWorker(cfg.Pipeline, cfg.Topics, adapter, modelClient, logger))
	analysis.Add(analyzer.NewInsightsWorker(cfg.Pipeline, cfg.Topics, adapter, modelClient, logger))
	analysis.Add(analyzer.NewSummaryWorker(cfg.Pipeline, cfg.Topics, adapter, modelClient, logger))

	aggregate.Add(agg)

	return &Supervisor{
		root:        root,
		ingest:      ingest,
		analysis:    analysis,
		aggregate:   aggregate,
		broker:      adapter,
		modelClient: modelClient,
		Aggregator:  agg,
		Broadcaster: hub,
		topics:      cfg.Topics,
	}
}

// Bootstrap idempotently provisions every topic the pipeline depends on,
// so no stage races topic creation once Serve starts consuming.
func (s *Supervisor) Bootstrap(ctx context.Context) error {
	topics := []string{
		s.topics.MessagesRaw,
		s.topics.ConversationsState,
		s.topics.AISentiment,
		s.topics.AIPII,
		s.topics.AIInsights,
		s.topics.AISummary,
		s.topics.AIAggregated,
		s.topics.DLQ,
	}
	for _, topic := range topics {
		if err := s.broker.EnsureTopic(ctx, topic); err != nil {
			return fmt.Errorf("pipeline: ensure topic %q: %w", topic, err)
		}
	}
	return nil
}

// Serve blocks, running every supervised stage until ctx is canceled.
func (s *Supervisor) Serve(ctx context.Context) error {
	return s.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine and returns a
// channel that receives the terminal error (or nil).
func (s *Supervisor) ServeBackground(ctx context.Context) <-chan error {
	return s.root.ServeBackground(ctx)
}

// Shutdown releases resources Serve does not own itself: the Model
// Client's Provider connection and the broker adapter. Call after ctx
// passed to Serve has been canceled and Serve has returned.
func (s *Supervisor) Shutdown() error {
	if err := s.modelClient.Close(); err != nil {
		return fmt.Errorf("pipeline: close model client: %w", err)
	}
	if err := s.broker.Close(); err != nil {
		return fmt.Errorf("pipeline: close broker: %w", err)
	}
	return nil
}
