// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/cache"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/metrics"
	"github.com/threadline-dev/threadline/internal/models"
)

// groupName is the broker consumer group the Processor reads under. It is
// its own group so Processor restarts never compete with Analyzer Workers
// for conversations.state offsets - the Processor never reads that topic.
const groupName = "processor"

// DefaultCacheCapacity bounds how many ConversationState entries the
// Processor keeps resident before evicting the least frequently used
// one, so the in-progress conversations that actually matter stay hot.
const DefaultCacheCapacity = 100_000

// DefaultCacheTTL is how long an idle conversation's state survives in the
// cache before a lazy expiration check evicts it.
const DefaultCacheTTL = 24 * time.Hour

// Processor folds messages.raw and ai.summary records into
// ConversationState, and emits to conversations.state only for the
// former (the loop guard).
type Processor struct {
	cfg    config.PipelineConfig
	topics config.TopicsConfig
	broker broker.Adapter
	logger zerolog.Logger

	store *cache.LFU[models.ConversationKey, *models.ConversationState]
}

// New constructs a Processor. Exactly one instance should run per
// deployment; it is not sharded, since conversations.state partitioning
// by conversation_id already gives every downstream consumer per-key
// ordering without the Processor itself needing to shard its state map.
func New(cfg config.PipelineConfig, topics config.TopicsConfig, adapter broker.Adapter, logger zerolog.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		topics: topics,
		broker: adapter,
		logger: logging.Component(logger, "processor"),
		store:  cache.NewLFU[models.ConversationKey, *models.ConversationState](DefaultCacheCapacity, DefaultCacheTTL),
	}
}

// Serve implements suture.Service. It blocks consuming messages.raw and
// ai.summary until ctx is canceled.
func (p *Processor) Serve(ctx context.Context) error {
	msgs, err := p.broker.Consume(ctx, groupName, p.topics.MessagesRaw, p.topics.AISummary)
	if err != nil {
		return fmt.Errorf("processor: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			p.handle(ctx, msg)
		}
	}
}

// String satisfies suture's optional Stringer interface for nicer logs.
func (p *Processor) String() string { return "processor" }

func (p *Processor) handle(ctx context.Context, msg *broker.Message) {
	switch msg.Topic {
	case p.topics.MessagesRaw:
		p.handleRawMessage(ctx, msg)
	case p.topics.AISummary:
		p.handleSummary(ctx, msg)
	default:
		p.logger.Warn().Str("topic", msg.Topic).Msg("processor received message on unexpected topic")
		msg.Ack()
	}
}

// handleRawMessage loads-or-creates state, appends the message, and
// emits - the only path that produces to conversations.state.
func (p *Processor) handleRawMessage(ctx context.Context, msg *broker.Message) {
	var sm models.SupportMessage
	if err := models.Unmarshal(msg.Payload, &sm); err != nil {
		p.routeToDLQ(ctx, msg, err)
		return
	}
	if sm.TenantID == "" {
		p.logger.Warn().Err(ErrUnknownTenant).Str("conversation_id", sm.ConversationID).Msg("dropping message with no tenant_id")
		metrics.ProcessorRecordsDropped.WithLabelValues("unknown_tenant").Inc()
		msg.Ack()
		return
	}

	key := models.ConversationKey{TenantID: sm.TenantID, ConversationID: sm.ConversationID}
	state, ok := p.store.Get(key)
	if !ok {
		state = models.NewConversationState(sm.TenantID, sm.ConversationID)
	}
	state.AddMessage(sm, p.cfg.RecentMessagesWindow)
	p.store.Set(key, state)

	payload, err := models.Marshal(state)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode conversation state")
		msg.Nack()
		return
	}

	headers := map[string]string{
		broker.HeaderTenantID: sm.TenantID,
		broker.HeaderProducer: "processor",
	}
	if err := p.broker.Publish(ctx, p.topics.ConversationsState, sm.ConversationID, payload, headers); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish conversation state")
		msg.Nack()
		return
	}

	metrics.ProcessorRecordsProcessed.Inc()
	msg.Ack()
}

// handleSummary merges a newer summary into existing state, never
// emitting. Summaries for conversations the Processor has no state for
// are dropped (ErrUnknownConversation), which can happen on out-of-order
// delivery or cross-replica traffic.
func (p *Processor) handleSummary(_ context.Context, msg *broker.Message) {
	var summary models.SummaryResult
	if err := models.Unmarshal(msg.Payload, &summary); err != nil {
		p.routeToDLQ(context.Background(), msg, err)
		return
	}

	key := models.ConversationKey{TenantID: summary.TenantID, ConversationID: summary.ConversationID}
	state, ok := p.store.Get(key)
	if !ok {
		convLogger := logging.WithConversation(p.logger, summary.TenantID, summary.ConversationID)
		convLogger.Warn().
			Err(ErrUnknownConversation).
			Msg("summary for unknown conversation, dropping")
		metrics.ProcessorRecordsDropped.WithLabelValues("unknown_conversation").Inc()
		msg.Ack()
		return
	}

	state.SetSummaryIfNewer(&summary)
	p.store.Set(key, state)

	// Deliberately no Publish call here: this is the loop guard. Summary
	// ingestion only ever updates local state.
	msg.Ack()
}

// routeToDLQ implements the poison-record retry path: a record is
// retried via self-republish up to PipelineConfig.MaxRetries, tracked in
// the retry_count header, before being routed to the dlq topic.
func (p *Processor) routeToDLQ(ctx context.Context, msg *broker.Message, decodeErr error) {
	retryCount := headerInt(msg.Headers, broker.HeaderRetryCount)
	maxRetries := p.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if retryCount < maxRetries {
		headers := cloneHeaders(msg.Headers)
		headers[broker.HeaderRetryCount] = fmt.Sprintf("%d", retryCount+1)
		if err := p.broker.Publish(ctx, msg.Topic, msg.Key, msg.Payload, headers); err != nil {
			p.logger.Error().Err(err).Msg("failed to republish poison record for retry")
			msg.Nack()
			return
		}
		p.logger.Warn().Err(decodeErr).Int("retry_count", retryCount+1).Msg("record failed to decode, scheduled for retry")
		msg.Ack()
		return
	}

	envelope := models.DLQEnvelope{
		OriginalTopic: msg.Topic,
		Payload:       msg.Payload,
		Error:         decodeErr.Error(),
		RetryCount:    retryCount,
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Headers:       msg.Headers,
	}
	payload, err := models.Marshal(envelope)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode DLQ envelope")
		msg.Nack()
		return
	}

	if err := p.broker.Publish(ctx, p.topics.DLQ, msg.Key, payload, msg.Headers); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish to DLQ")
		msg.Nack()
		return
	}

	p.logger.Warn().Err(decodeErr).Str("original_topic", msg.Topic).Msg("record exhausted retries, routed to DLQ")
	metrics.ProcessorRecordsToDLQ.WithLabelValues(msg.Topic).Inc()
	msg.Ack()
}

func headerInt(headers map[string]string, key string) int {
	v, ok := headers[key]
	if !ok {
		return 0
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func cloneHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	return out
}
