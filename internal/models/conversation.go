// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// DefaultRecentMessagesWindow is the default bound on ConversationState.RecentMessages.
const DefaultRecentMessagesWindow = 10

// ConversationState is the Processor's view of a conversation: a bounded
// window of recent messages plus the latest incremental summary. It is
// produced to conversations.state on every new SupportMessage and is never
// re-emitted in response to a summary (see processor package for the loop
// guard).
type ConversationState struct {
	TenantID       string           `json:"tenant_id"`
	ConversationID string           `json:"conversation_id"`
	MessageCount   int              `json:"message_count"`
	RecentMessages []SupportMessage `json:"recent_messages"`
	CurrentSummary *SummaryResult   `json:"current_summary,omitempty"`
	Participants   []string         `json:"participants"`
	LastActivity   time.Time        `json:"last_activity"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewConversationState creates empty state for a conversation key.
func NewConversationState(tenantID, conversationID string) *ConversationState {
	now := time.Now().UTC()
	return &ConversationState{
		TenantID:       tenantID,
		ConversationID: conversationID,
		RecentMessages: make([]SupportMessage, 0, DefaultRecentMessagesWindow),
		Participants:   make([]string, 0, 3),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddMessage appends msg to the rolling window, evicting the oldest entry
// once the window exceeds the given bound, and updates derived fields.
// window<=0 falls back to DefaultRecentMessagesWindow.
func (c *ConversationState) AddMessage(msg SupportMessage, window int) {
	if window <= 0 {
		window = DefaultRecentMessagesWindow
	}

	c.RecentMessages = append(c.RecentMessages, msg)
	if len(c.RecentMessages) > window {
		c.RecentMessages = c.RecentMessages[len(c.RecentMessages)-window:]
	}

	c.MessageCount++
	c.LastActivity = msg.Timestamp
	c.UpdatedAt = time.Now().UTC()

	for _, p := range c.Participants {
		if p == string(msg.Sender) {
			return
		}
	}
	c.Participants = append(c.Participants, string(msg.Sender))
}

// SetSummaryIfNewer replaces CurrentSummary only if incoming is strictly
// newer than the one already held, by timestamp. Returns whether it replaced.
func (c *ConversationState) SetSummaryIfNewer(incoming *SummaryResult) bool {
	if incoming == nil {
		return false
	}
	if c.CurrentSummary == nil || incoming.Timestamp.After(c.CurrentSummary.Timestamp) {
		c.CurrentSummary = incoming
		c.UpdatedAt = time.Now().UTC()
		return true
	}
	return false
}

// ContextText renders the last n messages as "SENDER: text" lines, the
// minimal context handed to the Model Client by analyzer workers.
func (c *ConversationState) ContextText(n int) string {
	msgs := c.RecentMessages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	var b []byte
	for i, m := range msgs {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, []byte(string(m.Sender))...)
		b = append(b, ':', ' ')
		b = append(b, []byte(m.Text)...)
	}
	return string(b)
}

// Key returns the (tenant, conversation) identity for this state, mirroring
// AggregatedIntelligence.Key so Processor and Aggregator key their maps the
// same way.
func (c *ConversationState) Key() ConversationKey {
	return ConversationKey{TenantID: c.TenantID, ConversationID: c.ConversationID}
}

// LatestMessage returns the most recently appended message, or nil if empty.
func (c *ConversationState) LatestMessage() *SupportMessage {
	if len(c.RecentMessages) == 0 {
		return nil
	}
	return &c.RecentMessages[len(c.RecentMessages)-1]
}
