// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/metrics"
	"github.com/threadline-dev/threadline/internal/models"
)

const groupName = "aggregator"

// UpdateFunc is invoked synchronously, in the Aggregator's own goroutine,
// every time a merge changes an AggregatedIntelligence. The Pipeline
// Supervisor wires this to Broadcaster.Publish; the Aggregator never
// imports the broadcaster package, keeping the coupling in-process and
// one-directional.
type UpdateFunc func(models.AggregatedIntelligence)

// Aggregator owns one in-memory map of conversation intelligence; no
// other component reads or writes it directly.
type Aggregator struct {
	topics   config.TopicsConfig
	broker   broker.Adapter
	logger   zerolog.Logger
	onUpdate UpdateFunc

	mu    sync.RWMutex
	store map[string]*models.AggregatedIntelligence
}

// New constructs an Aggregator. onUpdate may be nil if nothing needs
// synchronous live updates (e.g. a replay-only deployment).
func New(topics config.TopicsConfig, adapter broker.Adapter, onUpdate UpdateFunc, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		topics:   topics,
		broker:   adapter,
		onUpdate: onUpdate,
		logger:   logging.Component(logger, "aggregator"),
		store:    make(map[string]*models.AggregatedIntelligence),
	}
}

// String satisfies suture's optional Stringer interface.
func (a *Aggregator) String() string { return "aggregator" }

// Serve implements suture.Service, consuming all four result topics under
// one consumer group until ctx is canceled. A single goroutine processes
// every result in arrival order; merge functions are written to tolerate
// arbitrary interleaving across topics, since there is no cross-topic
// ordering guarantee at the Aggregator.
func (a *Aggregator) Serve(ctx context.Context) error {
	msgs, err := a.broker.Consume(ctx, groupName,
		a.topics.AISentiment, a.topics.AIPII, a.topics.AIInsights, a.topics.AISummary)
	if err != nil {
		return fmt.Errorf("aggregator: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			a.handle(ctx, msg)
		}
	}
}

func (a *Aggregator) handle(ctx context.Context, msg *broker.Message) {
	var raw map[string]interface{}
	if err := models.Unmarshal(msg.Payload, &raw); err != nil {
		a.logger.Warn().Err(err).Str("topic", msg.Topic).Msg("could not decode partial result, dropping")
		msg.Ack()
		return
	}

	kind := discriminate(raw)
	merge, ok := dispatch[kind]
	if !ok {
		a.logger.Warn().Str("topic", msg.Topic).Msg("partial result matched no known shape, dropping")
		msg.Ack()
		return
	}

	tenantID, _ := raw["tenant_id"].(string)
	conversationID, _ := raw["conversation_id"].(string)
	if tenantID == "" || conversationID == "" {
		a.logger.Warn().Str("topic", msg.Topic).Msg("partial result missing tenant_id/conversation_id, dropping")
		msg.Ack()
		return
	}
	key := models.ConversationKey{TenantID: tenantID, ConversationID: conversationID}

	a.mu.Lock()
	entry, exists := a.store[key.String()]
	if !exists {
		entry = &models.AggregatedIntelligence{TenantID: tenantID, ConversationID: conversationID}
		a.store[key.String()] = entry
	}
	changed, err := merge(entry, msg.Payload)
	if err != nil {
		a.mu.Unlock()
		a.logger.Warn().Err(err).Str("kind", kind).Msg("merge failed, dropping record")
		msg.Ack()
		return
	}
	if changed {
		entry.LastUpdated = time.Now().UTC()
		score := qualityScore(entry)
		entry.QualityScore = &score
	}
	snapshot := *entry
	a.mu.Unlock()

	metrics.AggregatorMerges.WithLabelValues(kind).Inc()

	if changed {
		a.emit(ctx, snapshot)
	}
	msg.Ack()
}

func (a *Aggregator) emit(ctx context.Context, snapshot models.AggregatedIntelligence) {
	payload, err := models.Marshal(snapshot)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to encode aggregated intelligence")
		return
	}
	headers := map[string]string{
		broker.HeaderTenantID: snapshot.TenantID,
		broker.HeaderProducer: "aggregator",
	}
	if err := a.broker.Publish(ctx, a.topics.AIAggregated, snapshot.ConversationID, payload, headers); err != nil {
		a.logger.Error().Err(err).Msg("failed to publish aggregated intelligence")
	}
	if a.onUpdate != nil {
		a.onUpdate(snapshot)
	}
}

// Snapshot returns the current AggregatedIntelligence for key, if any
// partial result has been seen for it. Used by the HTTP surface for the
// intelligence read endpoint and for the snapshot handed to the
// Broadcaster on subscribe.
func (a *Aggregator) Snapshot(key models.ConversationKey) (*models.AggregatedIntelligence, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	entry, ok := a.store[key.String()]
	if !ok {
		return nil, false
	}
	clone := *entry
	return &clone, true
}
