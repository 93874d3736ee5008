// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package aggregator

import (
	"fmt"

	"github.com/threadline-dev/threadline/internal/models"
)

// discriminate identifies which of the four partial result shapes raw
// decodes to, by presence of a distinguishing field - a tagged variant
// with a structural discriminator instead of an explicit type tag.
func discriminate(raw map[string]interface{}) string {
	switch {
	case hasField(raw, "tldr"):
		return "summary"
	case hasField(raw, "has_pii"):
		return "pii"
	case hasField(raw, "intent"):
		return "insights"
	case hasField(raw, "sentiment"):
		return "sentiment"
	default:
		return ""
	}
}

func hasField(raw map[string]interface{}, field string) bool {
	_, ok := raw[field]
	return ok
}

// mergeFunc applies one decoded partial result to an in-progress
// AggregatedIntelligence. It returns whether the merge actually changed
// anything, so callers can skip redundant re-emission (see Open Questions
// in DESIGN.md on whether ai.aggregated should dedupe identical payloads).
type mergeFunc func(entry *models.AggregatedIntelligence, payload []byte) (bool, error)

// dispatch maps each structural discriminator to its merge function.
var dispatch = map[string]mergeFunc{
	"sentiment": mergeSentiment,
	"pii":       mergePII,
	"insights":  mergeInsights,
	"summary":   mergeSummary,
}

// mergeSentiment replaces entry.Sentiment iff the incoming record's offset
// is at least as large as the stored one's - last-offset-wins, idempotent
// under replay of the same offset.
func mergeSentiment(entry *models.AggregatedIntelligence, payload []byte) (bool, error) {
	var r models.SentimentResult
	if err := models.Unmarshal(payload, &r); err != nil {
		return false, fmt.Errorf("decode sentiment result: %w", err)
	}
	if entry.Sentiment != nil && r.Offset < entry.Sentiment.Offset {
		return false, nil
	}
	if entry.Sentiment != nil && *entry.Sentiment == r {
		return false, nil
	}
	entry.Sentiment = &r
	return true, nil
}

func mergeInsights(entry *models.AggregatedIntelligence, payload []byte) (bool, error) {
	var r models.InsightsResult
	if err := models.Unmarshal(payload, &r); err != nil {
		return false, fmt.Errorf("decode insights result: %w", err)
	}
	if entry.Insights != nil && r.Offset < entry.Insights.Offset {
		return false, nil
	}
	if entry.Insights != nil && sameInsights(*entry.Insights, r) {
		return false, nil
	}
	entry.Insights = &r
	return true, nil
}

func mergeSummary(entry *models.AggregatedIntelligence, payload []byte) (bool, error) {
	var r models.SummaryResult
	if err := models.Unmarshal(payload, &r); err != nil {
		return false, fmt.Errorf("decode summary result: %w", err)
	}
	if entry.Summary != nil && r.Offset < entry.Summary.Offset {
		return false, nil
	}
	if entry.Summary != nil && sameSummary(*entry.Summary, r) {
		return false, nil
	}
	entry.Summary = &r
	return true, nil
}

// mergePII implements a monotonic-OR, deduplicated-union PII merge:
// has_pii only ever becomes true, and entities only ever accumulate, for
// a conversation's process lifetime. Like the other merge functions it
// always assigns a freshly allocated result: the previous *PIIResult may
// still be referenced by an emitted snapshot sitting in a subscriber
// queue, so its fields must never be written again.
func mergePII(entry *models.AggregatedIntelligence, payload []byte) (bool, error) {
	var r models.PIIResult
	if err := models.Unmarshal(payload, &r); err != nil {
		return false, fmt.Errorf("decode PII result: %w", err)
	}

	prev := entry.PII
	merged := r
	merged.Entities = dedupUnion(nil, r.Entities)
	if prev != nil {
		merged.HasPII = prev.HasPII || r.HasPII
		merged.Entities = dedupUnion(prev.Entities, r.Entities)
		if prev.Offset > merged.Offset {
			merged.Offset = prev.Offset
		}
		if prev.Timestamp.After(merged.Timestamp) {
			merged.Timestamp = prev.Timestamp
		}

		if merged.HasPII == prev.HasPII &&
			len(merged.Entities) == len(prev.Entities) &&
			merged.RedactedText == prev.RedactedText {
			return false, nil
		}
	}

	entry.PII = &merged
	return true, nil
}

// dedupUnion unions two PII entity slices, deduping on (type,
// redacted_value). Order is stable: existing entities first, then newly
// seen ones in their incoming order.
func dedupUnion(existing, incoming []models.PIIEntity) []models.PIIEntity {
	seen := make(map[[2]string]struct{}, len(existing))
	out := make([]models.PIIEntity, 0, len(existing)+len(incoming))
	for _, e := range existing {
		k := [2]string{string(e.Type), e.RedactedValue}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	for _, e := range incoming {
		k := [2]string{string(e.Type), e.RedactedValue}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}

func sameInsights(a, b models.InsightsResult) bool {
	return a.Offset == b.Offset &&
		a.Intent == b.Intent &&
		a.Urgency == b.Urgency &&
		a.RequiresEscalation == b.RequiresEscalation &&
		a.EstimatedResolutionTime == b.EstimatedResolutionTime &&
		stringSliceEqual(a.Categories, b.Categories) &&
		stringSliceEqual(a.SuggestedActions, b.SuggestedActions) &&
		stringSliceEqual(a.KeyConcerns, b.KeyConcerns)
}

func sameSummary(a, b models.SummaryResult) bool {
	return a.Offset == b.Offset &&
		a.TLDR == b.TLDR &&
		a.CustomerIssue == b.CustomerIssue &&
		a.AgentResponse == b.AgentResponse &&
		stringSliceEqual(a.KeyPoints, b.KeyPoints) &&
		stringSliceEqual(a.NextSteps, b.NextSteps)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// qualityScore derives an optional escalation-risk scalar from the
// current merged state. Higher is worse: it is a simple escalation-risk
// indicator, not a customer-satisfaction score. Recipe: urgency
// contributes 0-3, negative sentiment adds 2, PII presence adds 1.
func qualityScore(entry *models.AggregatedIntelligence) int {
	score := 0
	if entry.Insights != nil {
		switch entry.Insights.Urgency {
		case models.UrgencyCritical:
			score += 3
		case models.UrgencyHigh:
			score += 2
		case models.UrgencyMedium:
			score += 1
		}
	}
	if entry.Sentiment != nil && entry.Sentiment.Sentiment == models.SentimentNegative {
		score += 2
	}
	if entry.PII != nil && entry.PII.HasPII {
		score++
	}
	return score
}
