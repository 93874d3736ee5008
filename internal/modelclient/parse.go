// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/threadline-dev/threadline/internal/models"
)

// ErrParseFailure signals the structured-text response from the provider
// did not match the expected shape. A parse failure is treated as a
// permanent failure: the caller answers with the fallback value.
var ErrParseFailure = errors.New("modelclient: could not parse structured response")

// fields splits a structured-text response into a key->value map, one
// entry per "KEY: value" line, uppercased keys. Unrecognized lines are
// ignored rather than causing a failure, so additive fields never break
// existing parsing.
func fields(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		val := strings.TrimSpace(line[idx+1:])
		out[key] = val
	}
	return out
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseSentiment(raw string) (*models.SentimentResult, error) {
	f := fields(raw)
	sentiment, ok := f["SENTIMENT"]
	if !ok {
		return nil, ErrParseFailure
	}
	confidence, _ := strconv.ParseFloat(f["CONFIDENCE"], 64)
	return &models.SentimentResult{
		Sentiment:  models.Sentiment(sentiment),
		Emotion:    models.Emotion(f["EMOTION"]),
		Confidence: confidence,
		Reasoning:  f["REASONING"],
		Timestamp:  time.Now().UTC(),
	}, nil
}

func parsePII(raw string) (*models.PIIResult, error) {
	hasPII, ok := parseBoolField(raw, "HAS_PII")
	if !ok {
		return nil, ErrParseFailure
	}

	var entities []models.PIIEntity
	var redactedText string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "ENTITY:"):
			parts := strings.Split(strings.TrimSpace(line[len("ENTITY:"):]), "|")
			if len(parts) < 2 {
				continue
			}
			entity := models.PIIEntity{
				Type:          models.PIIEntityType(strings.TrimSpace(parts[0])),
				RedactedValue: strings.TrimSpace(parts[1]),
			}
			if len(parts) >= 4 {
				entity.Start, _ = strconv.Atoi(strings.TrimSpace(parts[2]))
				entity.End, _ = strconv.Atoi(strings.TrimSpace(parts[3]))
			}
			entities = append(entities, entity)
		case strings.HasPrefix(strings.ToUpper(line), "REDACTED_TEXT:"):
			redactedText = strings.TrimSpace(line[len("REDACTED_TEXT:"):])
		}
	}

	return &models.PIIResult{
		HasPII:       hasPII,
		Entities:     entities,
		RedactedText: redactedText,
		Timestamp:    time.Now().UTC(),
	}, nil
}

func parseBoolField(raw, key string) (bool, bool) {
	f := fields(raw)
	v, ok := f[key]
	if !ok {
		return false, false
	}
	return strings.EqualFold(v, "true"), true
}

func parseInsights(raw string) (*models.InsightsResult, error) {
	f := fields(raw)
	intent, ok := f["INTENT"]
	if !ok {
		return nil, ErrParseFailure
	}
	requiresEscalation := strings.EqualFold(f["REQUIRES_ESCALATION"], "true")
	return &models.InsightsResult{
		Intent:                  models.Intent(intent),
		Urgency:                 models.Urgency(f["URGENCY"]),
		Categories:              splitList(f["CATEGORIES"]),
		SuggestedActions:        splitList(f["SUGGESTED_ACTIONS"]),
		RequiresEscalation:      requiresEscalation,
		EstimatedResolutionTime: f["ESTIMATED_RESOLUTION_TIME"],
		KeyConcerns:             splitList(f["KEY_CONCERNS"]),
		Timestamp:               time.Now().UTC(),
	}, nil
}

func parseSummary(raw string) (*models.SummaryResult, error) {
	f := fields(raw)
	tldr, ok := f["TLDR"]
	if !ok {
		return nil, ErrParseFailure
	}
	return &models.SummaryResult{
		TLDR:          tldr,
		CustomerIssue: f["CUSTOMER_ISSUE"],
		AgentResponse: f["AGENT_RESPONSE"],
		KeyPoints:     splitList(f["KEY_POINTS"]),
		NextSteps:     splitList(f["NEXT_STEPS"]),
		Timestamp:     time.Now().UTC(),
	}, nil
}
