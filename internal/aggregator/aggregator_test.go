// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/broker"
	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/models"
)

func testTopics() config.TopicsConfig {
	return config.TopicsConfig{
		AISentiment:  "ai.sentiment",
		AIPII:        "ai.pii",
		AIInsights:   "ai.insights",
		AISummary:    "ai.summary",
		AIAggregated: "ai.aggregated",
	}
}

func startAggregator(t *testing.T, adapter broker.Adapter, onUpdate UpdateFunc) (*Aggregator, <-chan *broker.Message, func()) {
	t.Helper()
	topics := testTopics()
	agg := New(topics, adapter, onUpdate, zerolog.Nop())

	aggCh, err := adapter.Consume(context.Background(), "test-aggregated-reader", topics.AIAggregated)
	if err != nil {
		t.Fatalf("subscribe to ai.aggregated: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = agg.Serve(ctx) }()
	time.Sleep(20 * time.Millisecond)

	return agg, aggCh, cancel
}

func publish(t *testing.T, adapter broker.Adapter, topic, key string, v interface{}) {
	t.Helper()
	payload, err := models.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %T: %v", v, err)
	}
	if err := adapter.Publish(context.Background(), topic, key, payload, nil); err != nil {
		t.Fatalf("publish %T: %v", v, err)
	}
}

func recvAggregated(t *testing.T, ch <-chan *broker.Message, timeout time.Duration) models.AggregatedIntelligence {
	t.Helper()
	select {
	case msg := <-ch:
		var ai models.AggregatedIntelligence
		if err := models.Unmarshal(msg.Payload, &ai); err != nil {
			t.Fatalf("unmarshal aggregated intelligence: %v", err)
		}
		return ai
	case <-time.After(timeout):
		t.Fatal("timed out waiting for ai.aggregated record")
		return models.AggregatedIntelligence{}
	}
}

// A sentiment-only result produces an AggregatedIntelligence with
// Sentiment set and PII/Insights/Summary nil.
func TestAggregator_SentimentOnlyMergesInIsolation(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	topics := testTopics()
	_, aggCh, cancel := startAggregator(t, adapter, nil)
	defer cancel()

	r := models.SentimentResult{TenantID: "t1", ConversationID: "c1", Offset: 1, Sentiment: models.SentimentNegative, Emotion: models.EmotionFrustrated}
	publish(t, adapter, topics.AISentiment, r.ConversationID, r)

	ai := recvAggregated(t, aggCh, time.Second)
	if ai.Sentiment == nil || ai.Sentiment.Sentiment != models.SentimentNegative {
		t.Fatalf("expected negative sentiment, got %+v", ai.Sentiment)
	}
	if ai.PII != nil || ai.Insights != nil || ai.Summary != nil {
		t.Fatalf("expected only sentiment set, got %+v", ai)
	}
}

// Property 4: a later-offset insights result replaces an earlier one.
func TestAggregator_InsightsLastOffsetWins(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	topics := testTopics()
	agg, aggCh, cancel := startAggregator(t, adapter, nil)
	defer cancel()

	key := models.ConversationKey{TenantID: "t1", ConversationID: "c2"}
	publish(t, adapter, topics.AIInsights, key.ConversationID, models.InsightsResult{
		TenantID: "t1", ConversationID: "c2", Offset: 1, Intent: models.IntentGeneralInquiry, Urgency: models.UrgencyLow,
	})
	recvAggregated(t, aggCh, time.Second)

	publish(t, adapter, topics.AIInsights, key.ConversationID, models.InsightsResult{
		TenantID: "t1", ConversationID: "c2", Offset: 2, Intent: models.IntentComplaint, Urgency: models.UrgencyHigh,
	})
	ai := recvAggregated(t, aggCh, time.Second)

	if ai.Insights.Intent != models.IntentComplaint || ai.Insights.Urgency != models.UrgencyHigh {
		t.Fatalf("expected latest-offset insights to win, got %+v", ai.Insights)
	}

	// An out-of-order, lower-offset result must not regress the view.
	publish(t, adapter, topics.AIInsights, key.ConversationID, models.InsightsResult{
		TenantID: "t1", ConversationID: "c2", Offset: 1, Intent: models.IntentGeneralInquiry, Urgency: models.UrgencyLow,
	})
	time.Sleep(50 * time.Millisecond)

	snap, ok := agg.Snapshot(key)
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if snap.Insights.Offset != 2 {
		t.Fatalf("snapshot offset = %d, want 2", snap.Insights.Offset)
	}
}

// Property 5 / S2: PII monotonicity - has_pii never un-flags once true,
// and entities accumulate as a deduplicated union across messages.
func TestAggregator_PIIMonotonicityAndEntityUnion(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	topics := testTopics()
	agg, aggCh, cancel := startAggregator(t, adapter, nil)
	defer cancel()

	publish(t, adapter, topics.AIPII, "c3", models.PIIResult{
		TenantID: "t1", ConversationID: "c3", Offset: 1, HasPII: true,
		Entities: []models.PIIEntity{{Type: models.PIIEmail, RedactedValue: "[EMAIL]"}},
	})
	ai := recvAggregated(t, aggCh, time.Second)
	if !ai.PII.HasPII || len(ai.PII.Entities) != 1 {
		t.Fatalf("expected has_pii=true with one entity, got %+v", ai.PII)
	}

	// Hold the snapshot from the first merge. It shares the emitted
	// *PIIResult, so a later merge must replace entry.PII rather than
	// write through it.
	key := models.ConversationKey{TenantID: "t1", ConversationID: "c3"}
	first, ok := agg.Snapshot(key)
	if !ok {
		t.Fatal("expected snapshot after first PII merge")
	}

	// A subsequent message with no PII must not un-flag the conversation,
	// but a duplicate entity must not create a second entry (S3).
	publish(t, adapter, topics.AIPII, "c3", models.PIIResult{
		TenantID: "t1", ConversationID: "c3", Offset: 2, HasPII: false,
		Entities: []models.PIIEntity{{Type: models.PIIEmail, RedactedValue: "[EMAIL]"}, {Type: models.PIIPhone, RedactedValue: "[PHONE]"}},
	})
	second := recvAggregated(t, aggCh, time.Second)
	if !second.PII.HasPII {
		t.Fatal("has_pii regressed to false, violating PII monotonicity")
	}
	if len(second.PII.Entities) != 2 {
		t.Fatalf("expected deduplicated union of 2 entities, got %d: %+v", len(second.PII.Entities), second.PII.Entities)
	}

	// The earlier snapshot is a point-in-time view; the second merge
	// must not have mutated it retroactively.
	if len(first.PII.Entities) != 1 {
		t.Fatalf("first snapshot mutated by later merge: %+v", first.PII.Entities)
	}
}

// Replaying the same sentiment offset a second time must not re-emit
// ai.aggregated.
func TestAggregator_IdempotentReplayDoesNotReemit(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	topics := testTopics()
	_, aggCh, cancel := startAggregator(t, adapter, nil)
	defer cancel()

	r := models.SentimentResult{TenantID: "t1", ConversationID: "c4", Offset: 5, Sentiment: models.SentimentPositive, Emotion: models.EmotionHappy}
	publish(t, adapter, topics.AISentiment, r.ConversationID, r)
	recvAggregated(t, aggCh, time.Second)

	publish(t, adapter, topics.AISentiment, r.ConversationID, r)
	select {
	case msg := <-aggCh:
		t.Fatalf("expected no re-emission on identical replay, got one on key %q", msg.Key)
	case <-time.After(200 * time.Millisecond):
	}
}

// The onUpdate callback fires synchronously alongside every emission, for
// Broadcaster wiring.
func TestAggregator_OnUpdateCallbackFires(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	topics := testTopics()

	updates := make(chan models.AggregatedIntelligence, 4)
	_, aggCh, cancel := startAggregator(t, adapter, func(ai models.AggregatedIntelligence) { updates <- ai })
	defer cancel()

	publish(t, adapter, topics.AISummary, "c5", models.SummaryResult{TenantID: "t1", ConversationID: "c5", Offset: 1, TLDR: "issue resolved"})
	recvAggregated(t, aggCh, time.Second)

	select {
	case ai := <-updates:
		if ai.Summary == nil || ai.Summary.TLDR != "issue resolved" {
			t.Fatalf("unexpected callback payload: %+v", ai)
		}
	case <-time.After(time.Second):
		t.Fatal("onUpdate callback did not fire")
	}
}

// Snapshot returns false for a conversation no result has ever touched.
func TestAggregator_SnapshotMissingConversation(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	agg, _, cancel := startAggregator(t, adapter, nil)
	defer cancel()

	if _, ok := agg.Snapshot(models.ConversationKey{TenantID: "t1", ConversationID: "does-not-exist"}); ok {
		t.Fatal("expected no snapshot for untouched conversation")
	}
}

// The same conversation_id under two tenants aggregates into two
// independent views - tenant isolation at the map-key level.
func TestAggregator_TenantIsolation(t *testing.T) {
	adapter := broker.NewMemoryAdapter()
	defer adapter.Close()
	topics := testTopics()
	agg, aggCh, cancel := startAggregator(t, adapter, nil)
	defer cancel()

	publish(t, adapter, topics.AIPII, "c6", models.PIIResult{
		TenantID: "t1", ConversationID: "c6", Offset: 1, HasPII: true,
		Entities: []models.PIIEntity{{Type: models.PIIEmail, RedactedValue: "[EMAIL]"}},
	})
	recvAggregated(t, aggCh, time.Second)

	publish(t, adapter, topics.AISentiment, "c6", models.SentimentResult{
		TenantID: "t2", ConversationID: "c6", Offset: 1, Sentiment: models.SentimentPositive,
	})
	recvAggregated(t, aggCh, time.Second)

	snapT2, ok := agg.Snapshot(models.ConversationKey{TenantID: "t2", ConversationID: "c6"})
	if !ok {
		t.Fatal("expected snapshot for (t2, c6)")
	}
	if snapT2.PII != nil {
		t.Fatalf("tenant t2's view absorbed tenant t1's PII: %+v", snapT2.PII)
	}
	snapT1, _ := agg.Snapshot(models.ConversationKey{TenantID: "t1", ConversationID: "c6"})
	if snapT1 == nil || snapT1.Sentiment != nil {
		t.Fatalf("tenant t1's view absorbed tenant t2's sentiment: %+v", snapT1)
	}
}
