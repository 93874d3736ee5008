// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelclient wraps an external generative model behind a
// rate-limited, bounded-concurrency, retrying facade. Every Analyzer
// Worker shares one Client; callers never see a transient failure, since
// permanent failures are substituted with a deterministic fallback value
// instead of propagating an error.
package modelclient

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/metrics"
	"github.com/threadline-dev/threadline/internal/models"
)

// Client exposes the five typed operations Analyzer Workers call.
type Client interface {
	AnalyzeSentiment(ctx context.Context, contextText string) (*models.SentimentResult, error)
	DetectPII(ctx context.Context, text string) (*models.PIIResult, error)
	ExtractInsights(ctx context.Context, contextText string) (*models.InsightsResult, error)
	UpdateSummary(ctx context.Context, old *models.SummaryResult, newMessage models.SupportMessage) (*models.SummaryResult, error)
	GenerateReply(ctx context.Context, contextText string) (string, error)
	Close() error
}

// client is the sole Client implementation. A shared token bucket and
// semaphore, owned here, bound load from every Analyzer Worker on the
// underlying Provider.
type client struct {
	provider Provider
	cfg      config.ModelConfig
	logger   zerolog.Logger

	limiter *rate.Limiter
	sem     chan struct{}
	breaker *gobreaker.CircuitBreaker[string]
}

// New constructs a Client. When cfg.MockMode is true, or provider is nil,
// a deterministic in-process Provider is used instead of any network call.
func New(cfg config.ModelConfig, provider Provider, logger zerolog.Logger) Client {
	if cfg.MockMode || provider == nil {
		provider = NewMockProvider()
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "model-client",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			metrics.ModelCircuitBreakerState.Set(float64(to))
		},
	})

	return &client{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
		sem:      make(chan struct{}, cfg.MaxConcurrentRequests),
		breaker:  breaker,
	}
}

func (c *client) Close() error {
	return c.provider.Close()
}

// call runs prompt through the rate limiter, semaphore, circuit breaker,
// and retry loop: up to 3 retries, exponential backoff
// (2s, 4s, 8s) jittered +-20%. ok=false signals exhausted retries, a
// non-transient error (including an open breaker), or a context canceled
// while waiting; the caller treats each as permanent failure and answers
// with a fallback value instead.
func (c *client) call(ctx context.Context, operation, prompt string) (string, bool) {
	start := time.Now()
	defer func() {
		metrics.ModelRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.ModelRequests.WithLabelValues(operation, "error").Inc()
		return "", false
	}
	metrics.ModelRateLimiterWaitDuration.Observe(time.Since(waitStart).Seconds())

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		metrics.ModelRequests.WithLabelValues(operation, "error").Inc()
		return "", false
	}

	backoff := c.cfg.InitialBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.ModelRetries.WithLabelValues(operation).Inc()
			jittered := jitter(backoff, 0.2)
			select {
			case <-time.After(jittered):
			case <-ctx.Done():
				metrics.ModelRequests.WithLabelValues(operation, "error").Inc()
				return "", false
			}
			backoff *= 2
			if c.cfg.MaxBackoff > 0 && backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		result, err := c.breaker.Execute(func() (string, error) {
			return c.provider.Generate(callCtx, prompt)
		})
		cancel()

		if err == nil {
			metrics.ModelRequests.WithLabelValues(operation, "ok").Inc()
			return result, true
		}

		if !isTransient(err) {
			break
		}
		c.logger.Warn().Err(err).Str("operation", operation).Int("attempt", attempt).Msg("model call failed, retrying")
	}

	metrics.ModelRequests.WithLabelValues(operation, "fallback").Inc()
	return "", false
}

// jitter returns d scaled by a uniform random factor in [1-frac, 1+frac].
func jitter(d time.Duration, frac float64) time.Duration {
	delta := (rand.Float64()*2 - 1) * frac
	return time.Duration(float64(d) * (1 + delta))
}

// isTransient classifies a provider error as retryable. Permanent errors
// (bad request, auth failure, unparseable response) skip the retry loop
// and go straight to fallback.
func isTransient(err error) bool {
	var te *TransientError
	return asTransient(err, &te)
}

func asTransient(err error, target **TransientError) bool {
	for err != nil {
		if te, ok := err.(*TransientError); ok {
			*target = te
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// TransientError marks a Provider failure as safe to retry (network
// error, 5xx-equivalent, explicit rate-limit signal).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient model error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }
