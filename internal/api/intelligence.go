// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-dev/threadline/internal/models"
)

// Intelligence implements GET /v1/conversations/{tenant}/{conversation}:
// the current AggregatedIntelligence for the key, or a not-found
// indication if the pipeline has not yet produced any partial result
// for it. A short-TTL read-through cache fronts the Aggregator's map so
// repeated polling of the same conversation does not contend with the
// Aggregator's merge loop for its read lock.
func (h *Handler) Intelligence(w http.ResponseWriter, r *http.Request) {
	key := models.ConversationKey{
		TenantID:       chi.URLParam(r, "tenant"),
		ConversationID: chi.URLParam(r, "conversation"),
	}

	if cached, ok := h.intelligence.Get(key); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	snapshot, ok := h.aggregator.Snapshot(key)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no intelligence produced yet for this conversation")
		return
	}

	h.intelligence.Set(key, snapshot)
	respondJSON(w, http.StatusOK, snapshot)
}
