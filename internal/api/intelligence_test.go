// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/aggregator"
	"github.com/threadline-dev/threadline/internal/broadcaster"
	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/models"
)

func testTopics() config.TopicsConfig {
	return config.TopicsConfig{
		MessagesRaw:  "messages.raw",
		AISentiment:  "ai.sentiment",
		AIPII:        "ai.pii",
		AIInsights:   "ai.insights",
		AISummary:    "ai.summary",
		AIAggregated: "ai.aggregated",
	}
}

// testRouter wires an Aggregator whose Serve loop is already running
// against adapter, so publishing a partial result to adapter becomes
// visible through Handler.Intelligence shortly after.
func testRouter(t *testing.T) (*chi.Mux, broker.Adapter, func()) {
	t.Helper()
	adapter := broker.NewMemoryAdapter()
	topics := testTopics()
	agg := aggregator.New(topics, adapter, nil, zerolog.Nop())
	hub := broadcaster.NewHub(config.BroadcasterConfig{SubscriberQueueDepth: 8}, zerolog.Nop())
	h := NewHandler(adapter, agg, hub, topics, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = agg.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)

	r := chi.NewRouter()
	r.Get("/v1/conversations/{tenant}/{conversation}", h.Intelligence)
	return r, adapter, func() { cancel(); _ = adapter.Close() }
}

// No partial result has ever been seen for a conversation, so the read
// contract's not-found indication applies.
func TestHandler_Intelligence_NotFound(t *testing.T) {
	router, _, done := testRouter(t)
	defer done()

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/acme/c1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// Once a partial result has been merged, the read endpoint serves the
// current AggregatedIntelligence snapshot.
func TestHandler_Intelligence_ReturnsSnapshot(t *testing.T) {
	router, adapter, done := testRouter(t)
	defer done()

	pii := models.PIIResult{
		TenantID:       "acme",
		ConversationID: "c1",
		Offset:         1,
		HasPII:         true,
		Entities:       []models.PIIEntity{{Type: models.PIIEmail, RedactedValue: "[REDACTED]"}},
	}
	payload, err := models.Marshal(pii)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := adapter.Publish(context.Background(), "ai.pii", "c1", payload, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/acme/c1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var got models.AggregatedIntelligence
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.PII == nil || !got.PII.HasPII {
		t.Fatalf("expected merged PII with has_pii=true, got %+v", got.PII)
	}
}

// The read-through cache serves a merge that landed within its TTL
// without re-reading the Aggregator's map; once the TTL elapses the next
// request observes the newer merge.
func TestHandler_Intelligence_CachesSnapshotBriefly(t *testing.T) {
	router, adapter, done := testRouter(t)
	defer done()

	publishSentiment := func(offset int64, sentiment models.Sentiment) {
		r := models.SentimentResult{TenantID: "acme", ConversationID: "c1", Offset: offset, Sentiment: sentiment}
		payload, err := models.Marshal(r)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := adapter.Publish(context.Background(), "ai.sentiment", "c1", payload, nil); err != nil {
			t.Fatalf("publish: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	publishSentiment(1, models.SentimentNegative)

	get := func() models.AggregatedIntelligence {
		req := httptest.NewRequest(http.MethodGet, "/v1/conversations/acme/c1", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body=%s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var got models.AggregatedIntelligence
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return got
	}

	first := get()
	if first.Sentiment == nil || first.Sentiment.Sentiment != models.SentimentNegative {
		t.Fatalf("expected initial sentiment negative, got %+v", first.Sentiment)
	}

	publishSentiment(2, models.SentimentPositive)

	cached := get()
	if cached.Sentiment == nil || cached.Sentiment.Sentiment != models.SentimentNegative {
		t.Fatalf("expected cached sentiment still negative before TTL expiry, got %+v", cached.Sentiment)
	}

	time.Sleep(intelligenceReadCacheTTL + 50*time.Millisecond)

	fresh := get()
	if fresh.Sentiment == nil || fresh.Sentiment.Sentiment != models.SentimentPositive {
		t.Fatalf("expected fresh sentiment positive after TTL expiry, got %+v", fresh.Sentiment)
	}
}
