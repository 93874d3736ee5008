// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// Sentiment is the coarse sentiment classification produced by the
// sentiment analyzer.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Emotion is the finer-grained emotional read attached to a SentimentResult.
type Emotion string

const (
	EmotionAngry      Emotion = "angry"
	EmotionFrustrated Emotion = "frustrated"
	EmotionSatisfied  Emotion = "satisfied"
	EmotionConfused   Emotion = "confused"
	EmotionUrgent     Emotion = "urgent"
	EmotionHappy      Emotion = "happy"
	EmotionNeutral    Emotion = "neutral"
)

// SentimentResult is produced per new message to ai.sentiment. Only the most
// recent (by broker offset) is authoritative for a conversation.
type SentimentResult struct {
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	Offset         int64     `json:"offset"`
	Sentiment      Sentiment `json:"sentiment"`
	Emotion        Emotion   `json:"emotion"`
	Confidence     float64   `json:"confidence"`
	Reasoning      string    `json:"reasoning"`
	Timestamp      time.Time `json:"timestamp"`
}

// PIIEntityType enumerates the kinds of PII the PII analyzer can flag.
type PIIEntityType string

const (
	PIIEmail         PIIEntityType = "email"
	PIIPhone         PIIEntityType = "phone"
	PIICreditCard    PIIEntityType = "credit_card"
	PIISSN           PIIEntityType = "ssn"
	PIIAddress       PIIEntityType = "address"
	PIIAccountNumber PIIEntityType = "account_number"
	PIIName          PIIEntityType = "name"
)

// PIIEntity is a single detected PII span.
type PIIEntity struct {
	Type          PIIEntityType `json:"type"`
	RedactedValue string        `json:"redacted_value"`
	Start         int           `json:"start"`
	End           int           `json:"end"`
}

// PIIResult is produced per new message to ai.pii. HasPII describes only the
// message that produced this particular result; the Aggregator is
// responsible for the conversation-lifetime monotonic merge.
type PIIResult struct {
	TenantID       string      `json:"tenant_id"`
	ConversationID string      `json:"conversation_id"`
	Offset         int64       `json:"offset"`
	HasPII         bool        `json:"has_pii"`
	Entities       []PIIEntity `json:"entities"`
	RedactedText   string      `json:"redacted_text"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Intent is the customer-intent classification produced by the insights
// analyzer.
type Intent string

const (
	IntentRefundRequest  Intent = "refund_request"
	IntentTechnicalIssue Intent = "technical_issue"
	IntentBillingInquiry Intent = "billing_inquiry"
	IntentFeatureRequest Intent = "feature_request"
	IntentComplaint      Intent = "complaint"
	IntentGeneralInquiry Intent = "general_inquiry"
	IntentAccountIssue   Intent = "account_issue"
	IntentCancellation   Intent = "cancellation"
)

// Urgency is the escalation urgency bucket produced by the insights analyzer.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// InsightsResult is produced per new message to ai.insights. The latest
// result (by broker offset) replaces the previous one in the aggregated view.
type InsightsResult struct {
	TenantID                string    `json:"tenant_id"`
	ConversationID          string    `json:"conversation_id"`
	Offset                  int64     `json:"offset"`
	Intent                  Intent    `json:"intent"`
	Urgency                 Urgency   `json:"urgency"`
	Categories              []string  `json:"categories"`
	SuggestedActions        []string  `json:"suggested_actions"`
	RequiresEscalation      bool      `json:"requires_escalation"`
	EstimatedResolutionTime string    `json:"estimated_resolution_time"`
	KeyConcerns             []string  `json:"key_concerns"`
	Timestamp               time.Time `json:"timestamp"`
}

// SummaryResult is the incremental summary produced per new message to
// ai.summary. Versioning is implicit via broker offset order.
type SummaryResult struct {
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	Offset         int64     `json:"offset"`
	TLDR           string    `json:"tldr"`
	CustomerIssue  string    `json:"customer_issue"`
	AgentResponse  string    `json:"agent_response,omitempty"`
	KeyPoints      []string  `json:"key_points"`
	NextSteps      []string  `json:"next_steps"`
	Timestamp      time.Time `json:"timestamp"`
}

// AggregatedIntelligence is the Aggregator's merged per-conversation view,
// produced to ai.aggregated on every change and handed to the Broadcaster.
type AggregatedIntelligence struct {
	TenantID       string           `json:"tenant_id"`
	ConversationID string           `json:"conversation_id"`
	Sentiment      *SentimentResult `json:"sentiment,omitempty"`
	PII            *PIIResult       `json:"pii,omitempty"`
	Insights       *InsightsResult  `json:"insights,omitempty"`
	Summary        *SummaryResult   `json:"summary,omitempty"`
	QualityScore   *int             `json:"quality_score,omitempty"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// Key returns the (tenant, conversation) identity used to key in-memory maps
// and subscriptions throughout the pipeline.
func (a *AggregatedIntelligence) Key() ConversationKey {
	return ConversationKey{TenantID: a.TenantID, ConversationID: a.ConversationID}
}

// ConversationKey identifies a conversation within a tenant. Every
// in-memory map keyed by conversation (Processor state, Aggregator cache,
// Broadcaster subscriptions) uses this type so a conversation_id collision
// across tenants can never cross-deliver data.
type ConversationKey struct {
	TenantID       string
	ConversationID string
}

// String renders the key as a single map key, used where a
// (tenant, conversation) pair indexes a plain string-keyed map (the
// Aggregator's store, the Broadcaster's subscription sets).
func (k ConversationKey) String() string {
	return k.TenantID + "\x1f" + k.ConversationID
}
