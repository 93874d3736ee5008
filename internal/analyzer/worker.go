// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyzer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/models"
)

// processFunc runs one Model Client operation against state and returns
// the encoded result ready to publish. offset is the conversations.state
// record's broker offset, which the processFunc stamps onto the result.
type processFunc func(ctx context.Context, state *models.ConversationState, offset int64) ([]byte, error)

// Worker is the shared consume-call-publish loop every Analyzer Worker
// runs; only its name, topic, and processFunc differ.
type Worker struct {
	name        string
	stateTopic  string
	resultTopic string
	broker      broker.Adapter
	logger      zerolog.Logger
	process     processFunc
}

func newWorker(name, stateTopic, resultTopic string, adapter broker.Adapter, process processFunc, logger zerolog.Logger) *Worker {
	return &Worker{
		name:        name,
		stateTopic:  stateTopic,
		resultTopic: resultTopic,
		broker:      adapter,
		logger:      logging.Component(logger, "analyzer-"+name),
		process:     process,
	}
}

// String satisfies suture's optional Stringer interface.
func (w *Worker) String() string { return "analyzer-" + w.name }

// Serve implements suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	msgs, err := w.broker.Consume(ctx, "analyzer-"+w.name, w.stateTopic)
	if err != nil {
		return fmt.Errorf("analyzer %s: subscribe: %w", w.name, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *broker.Message) {
	var state models.ConversationState
	if err := models.Unmarshal(msg.Payload, &state); err != nil {
		w.logger.Warn().Err(err).Msg("could not decode conversation state, dropping")
		msg.Ack()
		return
	}

	payload, err := w.process(ctx, &state, msg.Offset)
	if err != nil {
		convLogger := logging.WithConversation(w.logger, state.TenantID, state.ConversationID)
		convLogger.Error().Err(err).
			Msg("analysis failed")
		msg.Nack()
		return
	}

	headers := map[string]string{
		broker.HeaderTenantID: state.TenantID,
		broker.HeaderProducer: "analyzer-" + w.name,
	}
	if err := w.broker.Publish(ctx, w.resultTopic, state.ConversationID, payload, headers); err != nil {
		w.logger.Error().Err(err).Msg("failed to publish analysis result")
		msg.Nack()
		return
	}
	msg.Ack()
}
