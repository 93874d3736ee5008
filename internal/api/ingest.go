// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/metrics"
	"github.com/threadline-dev/threadline/internal/models"
	"github.com/threadline-dev/threadline/internal/validation"
)

// ingestRequest is the ingestion contract: conversation_id, sender, and
// message are required; channel and tenant_id are optional with
// defaults applied below.
type ingestRequest struct {
	ConversationID string            `json:"conversation_id" validate:"required"`
	Sender         string            `json:"sender" validate:"required,oneof=customer agent system"`
	Message        string            `json:"message" validate:"required,max=10000"`
	Channel        string            `json:"channel" validate:"omitempty,oneof=chat email voice sms"`
	TenantID       string            `json:"tenant_id"`
	Metadata       map[string]string `json:"metadata"`
	// IdempotencyKey lets a retried client request be recognized instead of
	// producing a second SupportMessage for the same customer action.
	IdempotencyKey string `json:"idempotency_key"`
}

// ingestResponse is the 202-equivalent acknowledgement: the record has
// been safely produced to messages.raw, not that any analysis has run.
type ingestResponse struct {
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

const defaultTenantID = "default"

// Ingest implements POST /v1/messages. It validates the payload, builds a
// SupportMessage, and publishes it to messages.raw keyed by
// conversation_id - nothing downstream of the broker is touched here.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.IngestRequestsTotal.WithLabelValues("400").Inc()
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		metrics.IngestRequestsTotal.WithLabelValues("400").Inc()
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		return
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = defaultTenantID
	}
	channel := models.MessageChannel(req.Channel)
	if channel == "" {
		channel = models.ChannelChat
	}

	if req.IdempotencyKey != "" && h.dedup.Seen(tenantID+":"+req.IdempotencyKey) {
		metrics.IngestRequestsTotal.WithLabelValues("202").Inc()
		respondJSON(w, http.StatusAccepted, ingestResponse{
			Status:    "duplicate",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	sm := models.NewSupportMessage(tenantID, req.ConversationID, models.MessageSender(req.Sender), channel, req.Message, req.Metadata)

	payload, err := models.Marshal(sm)
	if err != nil {
		metrics.IngestRequestsTotal.WithLabelValues("500").Inc()
		respondError(w, http.StatusInternalServerError, "ENCODE_ERROR", "failed to encode message")
		return
	}

	headers := map[string]string{
		broker.HeaderTenantID: tenantID,
		broker.HeaderProducer: "ingest",
	}
	if err := h.broker.Publish(r.Context(), h.topics.MessagesRaw, sm.ConversationID, payload, headers); err != nil {
		h.logger.Error().Err(err).Msg("failed to publish inbound message")
		metrics.IngestRequestsTotal.WithLabelValues("503").Inc()
		respondError(w, http.StatusServiceUnavailable, "BROKER_UNAVAILABLE", "could not accept message")
		return
	}

	metrics.IngestRequestsTotal.WithLabelValues("202").Inc()
	respondJSON(w, http.StatusAccepted, ingestResponse{
		MessageID: sm.MessageID,
		Status:    "accepted",
		Timestamp: sm.Timestamp,
	})
}
