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

// NewInsightsWorker builds the insights Analyzer Worker.
func NewInsightsWorker(cfg config.PipelineConfig, topics config.TopicsConfig, adapter broker.Adapter, client modelclient.Client, logger zerolog.Logger) *Worker {
	process := func(ctx context.Context, state *models.ConversationState, offset int64) ([]byte, error) {
		result, err := client.ExtractInsights(ctx, state.ContextText(cfg.ContextMessages))
		if err != nil {
			return nil, err
		}
		result.TenantID = state.TenantID
		result.ConversationID = state.ConversationID
		result.Offset = offset
		return models.Marshal(result)
	}
	return newWorker("insights", topics.ConversationsState, topics.AIInsights, adapter, process, logger)
}
