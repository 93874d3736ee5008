// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// mockProvider generates structured-text responses heuristically from the
// prompt text, without any network call. It answers through the same
// prompt/parse contract the real provider does, so cfg.MockMode exercises
// the identical code path in Client.
type mockProvider struct{}

// NewMockProvider returns a deterministic Provider used when cfg.MockMode
// is set or when New receives no Provider (the server passes none unless
// cfg.Provider is "anthropic"), for local development and tests.
func NewMockProvider() Provider {
	return &mockProvider{}
}

func (m *mockProvider) Name() string { return "mock" }
func (m *mockProvider) Close() error { return nil }

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
var phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)

func (m *mockProvider) Generate(_ context.Context, prompt string) (string, error) {
	// The instruction header enumerates every label a response may use
	// ("angry", "refund_request", ...), so the keyword heuristics below
	// must only ever see the conversation text after the blank line.
	body := prompt
	if idx := strings.Index(prompt, "\n\n"); idx >= 0 {
		body = prompt[idx+2:]
	}
	lower := strings.ToLower(body)

	switch {
	case strings.HasPrefix(prompt, "Classify the sentiment"):
		return mockSentiment(lower), nil
	case strings.HasPrefix(prompt, "Detect personally identifiable"):
		return mockPII(body), nil
	case strings.HasPrefix(prompt, "Extract customer-support insights"):
		return mockInsights(lower), nil
	case strings.HasPrefix(prompt, "Summarize the following"), strings.HasPrefix(prompt, "Update the existing"):
		return mockSummary(body), nil
	default:
		return "Thanks for reaching out, a member of our team will follow up shortly.", nil
	}
}

func mockSentiment(lower string) string {
	angryWords := []string{"angry", "furious", "unacceptable", "terrible", "worst", "ridiculous"}
	frustratedWords := []string{"frustrated", "annoyed", "still not working", "again", "third time"}
	happyWords := []string{"thank you", "thanks", "great", "awesome", "appreciate", "resolved"}

	switch {
	case containsAny(lower, angryWords):
		return "SENTIMENT: negative\nEMOTION: angry\nCONFIDENCE: 0.90\nREASONING: message uses strongly negative language."
	case containsAny(lower, frustratedWords):
		return "SENTIMENT: negative\nEMOTION: frustrated\nCONFIDENCE: 0.80\nREASONING: message expresses frustration with a recurring issue."
	case containsAny(lower, happyWords):
		return "SENTIMENT: positive\nEMOTION: happy\nCONFIDENCE: 0.85\nREASONING: message expresses gratitude or satisfaction."
	default:
		return "SENTIMENT: neutral\nEMOTION: neutral\nCONFIDENCE: 0.60\nREASONING: message is informational with no strong emotional signal."
	}
}

func mockPII(prompt string) string {
	var lines []string
	hasPII := false

	if match := emailPattern.FindString(prompt); match != "" {
		hasPII = true
		lines = append(lines, fmt.Sprintf("ENTITY: email|%s|0|0", redact(match)))
	}
	if match := phonePattern.FindString(prompt); match != "" {
		hasPII = true
		lines = append(lines, fmt.Sprintf("ENTITY: phone|%s|0|0", redact(match)))
	}

	redactedText := prompt
	redactedText = emailPattern.ReplaceAllString(redactedText, "[REDACTED]")
	redactedText = phonePattern.ReplaceAllString(redactedText, "[REDACTED]")

	var sb strings.Builder
	fmt.Fprintf(&sb, "HAS_PII: %t\n", hasPII)
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "REDACTED_TEXT: %s", redactedText)
	return sb.String()
}

func redact(value string) string {
	if len(value) <= 4 {
		return "[REDACTED]"
	}
	return value[:2] + "***" + value[len(value)-2:]
}

func mockInsights(lower string) string {
	intent := "general_inquiry"
	urgency := "low"
	escalate := "false"

	switch {
	case containsAny(lower, []string{"refund", "money back", "charge back"}):
		intent = "refund_request"
	case containsAny(lower, []string{"bill", "invoice", "charged twice", "overcharged"}):
		intent = "billing_inquiry"
	case containsAny(lower, []string{"cancel", "close my account", "unsubscribe"}):
		intent = "cancellation"
	case containsAny(lower, []string{"not working", "bug", "error", "broken", "crash"}):
		intent = "technical_issue"
	case containsAny(lower, []string{"feature", "would be nice", "please add"}):
		intent = "feature_request"
	case containsAny(lower, []string{"unacceptable", "furious", "terrible service"}):
		intent = "complaint"
	case containsAny(lower, []string{"login", "password", "locked out", "my account"}):
		intent = "account_issue"
	}

	switch {
	case containsAny(lower, []string{"urgent", "immediately", "asap", "emergency"}):
		urgency = "critical"
		escalate = "true"
	case containsAny(lower, []string{"angry", "furious", "unacceptable", "third time"}):
		urgency = "high"
		escalate = "true"
	case intent == "refund_request", intent == "complaint":
		urgency = "medium"
	}

	return fmt.Sprintf(
		"INTENT: %s\nURGENCY: %s\nCATEGORIES: %s\nSUGGESTED_ACTIONS: review conversation,follow up with customer\nREQUIRES_ESCALATION: %s\nESTIMATED_RESOLUTION_TIME: 1 business day\nKEY_CONCERNS: %s",
		intent, urgency, intent, escalate, intent,
	)
}

func mockSummary(prompt string) string {
	lines := strings.Split(prompt, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if last == "" && len(lines) > 1 {
		last = strings.TrimSpace(lines[len(lines)-2])
	}
	if len(last) > 200 {
		last = last[:200]
	}

	return fmt.Sprintf(
		"TLDR: customer conversation in progress, most recent message: %s\n"+
			"CUSTOMER_ISSUE: %s\n"+
			"AGENT_RESPONSE: pending\n"+
			"KEY_POINTS: %s\n"+
			"NEXT_STEPS: continue monitoring conversation",
		last, last, last,
	)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
