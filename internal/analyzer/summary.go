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

// NewSummaryWorker builds the summary Analyzer Worker. With no prior
// summary it asks the Model Client to summarize the full context window;
// once a summary exists, it asks only for an incremental update against
// the single new message (old_summary combined with new_message).
func NewSummaryWorker(cfg config.PipelineConfig, topics config.TopicsConfig, adapter broker.Adapter, client modelclient.Client, logger zerolog.Logger) *Worker {
	process := func(ctx context.Context, state *models.ConversationState, offset int64) ([]byte, error) {
		newMessage := models.SupportMessage{TenantID: state.TenantID, ConversationID: state.ConversationID}
		if state.CurrentSummary == nil {
			newMessage.Text = state.ContextText(cfg.ContextMessages)
		} else if latest := state.LatestMessage(); latest != nil {
			newMessage.Text = latest.Text
		}

		result, err := client.UpdateSummary(ctx, state.CurrentSummary, newMessage)
		if err != nil {
			return nil, err
		}
		result.TenantID = state.TenantID
		result.ConversationID = state.ConversationID
		result.Offset = offset
		return models.Marshal(result)
	}
	return newWorker("summary", topics.ConversationsState, topics.AISummary, adapter, process, logger)
}
