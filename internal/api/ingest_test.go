// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/aggregator"
	"github.com/threadline-dev/threadline/internal/broadcaster"
	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/models"
)

func testHandler(t *testing.T) (*Handler, broker.Adapter) {
	t.Helper()
	adapter := broker.NewMemoryAdapter()
	topics := config.TopicsConfig{MessagesRaw: "messages.raw"}
	agg := aggregator.New(topics, adapter, nil, zerolog.Nop())
	hub := broadcaster.NewHub(config.BroadcasterConfig{SubscriberQueueDepth: 8}, zerolog.Nop())
	return NewHandler(adapter, agg, hub, topics, zerolog.Nop()), adapter
}

// A valid ingestion request is accepted and produces a SupportMessage
// onto messages.raw.
func TestHandler_Ingest_Accepted(t *testing.T) {
	h, adapter := testHandler(t)

	msgs, err := adapter.Consume(t.Context(), "test", "messages.raw")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	body := `{"conversation_id":"c1","sender":"customer","message":"I'm frustrated with my order","tenant_id":"acme"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "accepted" || resp.MessageID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	select {
	case msg := <-msgs:
		var sm models.SupportMessage
		if err := models.Unmarshal(msg.Payload, &sm); err != nil {
			t.Fatalf("decode published message: %v", err)
		}
		if sm.ConversationID != "c1" || sm.TenantID != "acme" {
			t.Fatalf("unexpected published message: %+v", sm)
		}
	default:
		t.Fatal("expected a message to be published to messages.raw")
	}
}

func TestHandler_Ingest_MissingRequiredFields(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewBufferString(`{"sender":"customer"}`))
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandler_Ingest_InvalidSender(t *testing.T) {
	h, _ := testHandler(t)

	body := `{"conversation_id":"c1","sender":"robot","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandler_Ingest_DuplicateIdempotencyKeySkipsPublish(t *testing.T) {
	h, adapter := testHandler(t)
	msgs, _ := adapter.Consume(t.Context(), "test", "messages.raw")

	body := `{"conversation_id":"c1","sender":"customer","message":"hello","idempotency_key":"retry-1"}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		h.Ingest(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("attempt %d: status = %d, want %d", i, rec.Code, http.StatusAccepted)
		}
	}

	select {
	case <-msgs:
	default:
		t.Fatal("expected exactly one message on messages.raw from the first request")
	}
	select {
	case <-msgs:
		t.Fatal("second request with the same idempotency_key must not publish again")
	default:
	}
}

func TestHandler_Ingest_DefaultsTenantAndChannel(t *testing.T) {
	h, adapter := testHandler(t)
	msgs, _ := adapter.Consume(t.Context(), "test", "messages.raw")

	body := `{"conversation_id":"c1","sender":"agent","message":"on it"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	h.Ingest(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	msg := <-msgs
	var sm models.SupportMessage
	_ = models.Unmarshal(msg.Payload, &sm)
	if sm.TenantID != defaultTenantID {
		t.Fatalf("tenant_id = %q, want default %q", sm.TenantID, defaultTenantID)
	}
	if sm.Channel != models.ChannelChat {
		t.Fatalf("channel = %q, want default %q", sm.Channel, models.ChannelChat)
	}
}
