// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyzer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/modelclient"
	"github.com/threadline-dev/threadline/internal/models"
)

// NewPIIWorker builds the PII Analyzer Worker. Unlike the other
// three analyzers it looks only at the latest message, not the whole
// context window - PII is a per-message property and folding prior
// messages into the prompt would just leak them back into the detector's
// input for no benefit.
func NewPIIWorker(_ config.PipelineConfig, topics config.TopicsConfig, adapter broker.Adapter, client modelclient.Client, logger zerolog.Logger) *Worker {
	process := func(ctx context.Context, state *models.ConversationState, offset int64) ([]byte, error) {
		latest := state.LatestMessage()
		text := ""
		if latest != nil {
			text = latest.Text
		}
		result, err := client.DetectPII(ctx, text)
		if err != nil {
			return nil, err
		}
		result.TenantID = state.TenantID
		result.ConversationID = state.ConversationID
		result.Offset = offset
		return models.Marshal(result)
	}
	return newWorker("pii", topics.ConversationsState, topics.AIPII, adapter, process, logger)
}
