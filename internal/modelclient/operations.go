// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import (
	"context"

	"github.com/threadline-dev/threadline/internal/metrics"
	"github.com/threadline-dev/threadline/internal/models"
)

func (c *client) AnalyzeSentiment(ctx context.Context, contextText string) (*models.SentimentResult, error) {
	raw, ok := c.call(ctx, "sentiment", sentimentPrompt(contextText))
	if !ok {
		return fallbackSentiment(), nil
	}
	result, err := parseSentiment(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", "sentiment").Msg("unparseable model response, using fallback")
		return fallbackSentiment(), nil
	}
	metrics.AnalyzerResultsProduced.WithLabelValues("sentiment").Inc()
	return result, nil
}

func (c *client) DetectPII(ctx context.Context, text string) (*models.PIIResult, error) {
	raw, ok := c.call(ctx, "pii", piiPrompt(text))
	if !ok {
		return fallbackPII(), nil
	}
	result, err := parsePII(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", "pii").Msg("unparseable model response, using fallback")
		return fallbackPII(), nil
	}
	metrics.AnalyzerResultsProduced.WithLabelValues("pii").Inc()
	return result, nil
}

func (c *client) ExtractInsights(ctx context.Context, contextText string) (*models.InsightsResult, error) {
	raw, ok := c.call(ctx, "insights", insightsPrompt(contextText))
	if !ok {
		return fallbackInsights(), nil
	}
	result, err := parseInsights(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", "insights").Msg("unparseable model response, using fallback")
		return fallbackInsights(), nil
	}
	metrics.AnalyzerResultsProduced.WithLabelValues("insights").Inc()
	return result, nil
}

func (c *client) UpdateSummary(ctx context.Context, old *models.SummaryResult, newMessage models.SupportMessage) (*models.SummaryResult, error) {
	oldTLDR := ""
	if old != nil {
		oldTLDR = old.TLDR
	}
	raw, ok := c.call(ctx, "summary", summaryPrompt(oldTLDR, newMessage.Text))
	if !ok {
		return fallbackSummary(old), nil
	}
	result, err := parseSummary(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("operation", "summary").Msg("unparseable model response, using fallback")
		return fallbackSummary(old), nil
	}
	metrics.AnalyzerResultsProduced.WithLabelValues("summary").Inc()
	return result, nil
}

func (c *client) GenerateReply(ctx context.Context, contextText string) (string, error) {
	raw, ok := c.call(ctx, "reply", replyPrompt(contextText))
	if !ok {
		return "", nil
	}
	return raw, nil
}
