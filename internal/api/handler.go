// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/aggregator"
	"github.com/threadline-dev/threadline/internal/broadcaster"
	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/cache"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/models"
)

// idempotencyCacheCapacity and idempotencyCacheTTL bound the ingestion
// dedup window: a client retrying the same idempotency_key within this
// window is treated as a duplicate, not a second message.
const (
	idempotencyCacheCapacity = 50_000
	idempotencyCacheTTL      = 10 * time.Minute
)

// intelligenceReadCacheTTL bounds how long a GET /v1/conversations read
// fronts the Aggregator's snapshot map before re-reading it, short enough
// that a client never observes data staler than one merge cycle under
// normal load.
const intelligenceReadCacheTTL = 2 * time.Second

// Handler holds the collaborators every route needs. It is deliberately
// thin: the broker for ingestion, the Aggregator for the read-path
// snapshot, and the Broadcaster for live subscriptions. No handler method
// mutates pipeline state directly.
type Handler struct {
	broker       broker.Adapter
	aggregator   *aggregator.Aggregator
	broadcaster  *broadcaster.Hub
	topics       config.TopicsConfig
	logger       zerolog.Logger
	dedup        *cache.Dedup
	intelligence *cache.TTL[models.ConversationKey, *models.AggregatedIntelligence]
}

// NewHandler constructs a Handler. The caller (cmd/server, wired through
// the Pipeline Supervisor) owns the lifetime of every collaborator passed
// in here.
func NewHandler(adapter broker.Adapter, agg *aggregator.Aggregator, hub *broadcaster.Hub, topics config.TopicsConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		broker:       adapter,
		aggregator:   agg,
		broadcaster:  hub,
		topics:       topics,
		logger:       logging.Component(logger, "api"),
		dedup:        cache.NewDedup(idempotencyCacheCapacity, idempotencyCacheTTL),
		intelligence: cache.NewTTL[models.ConversationKey, *models.AggregatedIntelligence](intelligenceReadCacheTTL),
	}
}
