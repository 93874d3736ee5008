// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package modelclient

import "fmt"

func sentimentPrompt(contextText string) string {
	return fmt.Sprintf(
		"Classify the sentiment and emotion of the following support conversation.\n"+
			"Respond only with lines: SENTIMENT: positive|neutral|negative, EMOTION: angry|frustrated|satisfied|confused|urgent|happy|neutral, CONFIDENCE: 0.0-1.0, REASONING: one sentence.\n\n%s",
		contextText,
	)
}

func piiPrompt(text string) string {
	return fmt.Sprintf(
		"Detect personally identifiable information in the following text.\n"+
			"Respond with HAS_PII: true|false, zero or more ENTITY: type|redacted_value|start|end lines, and REDACTED_TEXT: the text with PII replaced by [REDACTED].\n\n%s",
		text,
	)
}

func insightsPrompt(contextText string) string {
	return fmt.Sprintf(
		"Extract customer-support insights from the following conversation.\n"+
			"Respond with INTENT: refund_request|technical_issue|billing_inquiry|feature_request|complaint|general_inquiry|account_issue|cancellation, "+
			"URGENCY: low|medium|high|critical, CATEGORIES: comma,separated, SUGGESTED_ACTIONS: comma,separated, "+
			"REQUIRES_ESCALATION: true|false, ESTIMATED_RESOLUTION_TIME: free text, KEY_CONCERNS: comma,separated.\n\n%s",
		contextText,
	)
}

func summaryPrompt(oldTLDR, newMessage string) string {
	if oldTLDR == "" {
		return fmt.Sprintf(
			"Summarize the following support conversation window.\n"+
				"Respond with TLDR, CUSTOMER_ISSUE, AGENT_RESPONSE, KEY_POINTS: comma,separated, NEXT_STEPS: comma,separated.\n\n%s",
			newMessage,
		)
	}
	return fmt.Sprintf(
		"Update the existing summary with the new message.\n"+
			"Respond with TLDR, CUSTOMER_ISSUE, AGENT_RESPONSE, KEY_POINTS: comma,separated, NEXT_STEPS: comma,separated.\n\n"+
			"Existing summary: %s\n\nNew message: %s",
		oldTLDR, newMessage,
	)
}

func replyPrompt(contextText string) string {
	return fmt.Sprintf("Draft a brief, empathetic support-agent reply to the following conversation.\n\n%s", contextText)
}
