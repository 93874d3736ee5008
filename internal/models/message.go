// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the wire entities that flow through the pipeline's
// topics: raw messages, conversation state, the four analyzer results, and
// the aggregated view. Every entity carries tenant_id and conversation_id so
// downstream stages never need a side lookup to recover ownership.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MessageSender identifies who authored a SupportMessage.
type MessageSender string

const (
	SenderCustomer MessageSender = "customer"
	SenderAgent    MessageSender = "agent"
	SenderSystem   MessageSender = "system"
)

// MessageChannel identifies the channel a SupportMessage arrived on.
type MessageChannel string

const (
	ChannelChat  MessageChannel = "chat"
	ChannelEmail MessageChannel = "email"
	ChannelVoice MessageChannel = "voice"
	ChannelSMS   MessageChannel = "sms"
)

// MaxMessageLength is the maximum accepted length of SupportMessage.Text.
const MaxMessageLength = 10000

// SupportMessage is the immutable record produced to messages.raw for every
// inbound customer or agent message.
type SupportMessage struct {
	MessageID      string            `json:"message_id"`
	TenantID       string            `json:"tenant_id"`
	ConversationID string            `json:"conversation_id"`
	Sender         MessageSender     `json:"sender"`
	Channel        MessageChannel    `json:"channel"`
	Text           string            `json:"message"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewSupportMessage builds a SupportMessage with a generated MessageID and
// the current timestamp, mirroring the ingestion collaborator's contract.
func NewSupportMessage(tenantID, conversationID string, sender MessageSender, channel MessageChannel, text string, metadata map[string]string) SupportMessage {
	return SupportMessage{
		MessageID:      uuid.NewString(),
		TenantID:       tenantID,
		ConversationID: conversationID,
		Sender:         sender,
		Channel:        channel,
		Text:           text,
		Timestamp:      time.Now().UTC(),
		Metadata:       metadata,
	}
}
