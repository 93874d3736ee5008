// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import (
	"time"

	"github.com/threadline-dev/threadline/internal/models"
)

// fallbackSentiment is the statically defined neutral result substituted
// on permanent model failure.
func fallbackSentiment() *models.SentimentResult {
	return &models.SentimentResult{
		Sentiment:  models.SentimentNeutral,
		Emotion:    models.EmotionNeutral,
		Confidence: 0.0,
		Reasoning:  "fallback: model unavailable",
		Timestamp:  time.Now().UTC(),
	}
}

func fallbackPII() *models.PIIResult {
	return &models.PIIResult{
		HasPII:    false,
		Entities:  nil,
		Timestamp: time.Now().UTC(),
	}
}

func fallbackInsights() *models.InsightsResult {
	return &models.InsightsResult{
		Intent:    models.IntentGeneralInquiry,
		Urgency:   models.UrgencyLow,
		Timestamp: time.Now().UTC(),
	}
}

// fallbackSummary returns the previous summary unchanged if one exists,
// or an empty skeleton otherwise.
func fallbackSummary(old *models.SummaryResult) *models.SummaryResult {
	if old != nil {
		fallback := *old
		fallback.Timestamp = time.Now().UTC()
		return &fallback
	}
	return &models.SummaryResult{Timestamp: time.Now().UTC()}
}
