// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/models"
)

func testConfig() config.ModelConfig {
	return config.ModelConfig{
		MockMode:              true,
		RequestsPerMinute:     6000,
		MaxConcurrentRequests: 4,
		MaxRetries:            2,
		RequestTimeout:        time.Second,
	}
}

func TestClient_AnalyzeSentiment_UsesMockProvider(t *testing.T) {
	c := New(testConfig(), nil, zerolog.Nop())
	defer c.Close()

	result, err := c.AnalyzeSentiment(context.Background(), "I am furious, this is unacceptable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sentiment != models.SentimentNegative {
		t.Fatalf("expected negative sentiment, got %q", result.Sentiment)
	}
}

func TestClient_DetectPII_FindsEmail(t *testing.T) {
	c := New(testConfig(), nil, zerolog.Nop())
	defer c.Close()

	result, err := c.DetectPII(context.Background(), "reach me at jane.doe@example.com please")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.HasPII {
		t.Fatal("expected HasPII true for embedded email")
	}
}

func TestClient_ExtractInsights_RefundRequest(t *testing.T) {
	c := New(testConfig(), nil, zerolog.Nop())
	defer c.Close()

	result, err := c.ExtractInsights(context.Background(), "I want a refund for my last order")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Intent != models.IntentRefundRequest {
		t.Fatalf("expected refund_request intent, got %q", result.Intent)
	}
}

func TestClient_UpdateSummary_NoPrevious(t *testing.T) {
	c := New(testConfig(), nil, zerolog.Nop())
	defer c.Close()

	result, err := c.UpdateSummary(context.Background(), nil, models.SupportMessage{Text: "my order never arrived"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TLDR == "" {
		t.Fatal("expected non-empty TLDR")
	}
}

// failingProvider fails transiently a fixed number of times before succeeding,
// used to exercise the retry/backoff loop without any network dependency.
type failingProvider struct {
	failuresLeft int32
	calls        int32
}

func (f *failingProvider) Name() string { return "failing" }
func (f *failingProvider) Close() error { return nil }

func (f *failingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.failuresLeft, -1) >= 0 {
		return "", &TransientError{Err: errors.New("temporarily unavailable")}
	}
	return "SENTIMENT: neutral\nEMOTION: neutral\nCONFIDENCE: 0.5\nREASONING: ok", nil
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MockMode = false
	cfg.MaxRetries = 3
	provider := &failingProvider{failuresLeft: 2}

	c := New(cfg, provider, zerolog.Nop())
	defer c.Close()

	result, err := c.AnalyzeSentiment(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sentiment != models.SentimentNeutral {
		t.Fatalf("expected eventual success, got %+v", result)
	}
	if atomic.LoadInt32(&provider.calls) != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", provider.calls)
	}
}

type alwaysFailingProvider struct{}

func (alwaysFailingProvider) Name() string { return "always-failing" }
func (alwaysFailingProvider) Close() error { return nil }
func (alwaysFailingProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "", &TransientError{Err: errors.New("temporarily unavailable")}
}

func TestClient_FallsBackAfterRetriesExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.MockMode = false
	cfg.MaxRetries = 1

	c := New(cfg, alwaysFailingProvider{}, zerolog.Nop())
	defer c.Close()

	result, err := c.AnalyzeSentiment(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Sentiment != models.SentimentNeutral || result.Confidence != 0.0 {
		t.Fatalf("expected fallback sentiment, got %+v", result)
	}
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	base := 2 * time.Second
	for i := 0; i < 50; i++ {
		got := jitter(base, 0.2)
		if got < time.Duration(float64(base)*0.8) || got > time.Duration(float64(base)*1.2) {
			t.Fatalf("jitter %v out of bounds for base %v", got, base)
		}
	}
}
