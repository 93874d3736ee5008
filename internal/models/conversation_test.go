// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"testing"
	"time"
)

func TestConversationState_AddMessage_EvictsOldest(t *testing.T) {
	cs := NewConversationState("tenant-a", "conv-1")

	for i := 0; i < 11; i++ {
		msg := NewSupportMessage("tenant-a", "conv-1", SenderCustomer, ChannelChat, "msg", nil)
		cs.AddMessage(msg, DefaultRecentMessagesWindow)
	}

	if cs.MessageCount != 11 {
		t.Fatalf("message_count = %d, want 11", cs.MessageCount)
	}
	if len(cs.RecentMessages) != DefaultRecentMessagesWindow {
		t.Fatalf("recent_messages length = %d, want %d", len(cs.RecentMessages), DefaultRecentMessagesWindow)
	}
}

func TestConversationState_SetSummaryIfNewer(t *testing.T) {
	cs := NewConversationState("tenant-a", "conv-1")

	older := &SummaryResult{TLDR: "old", Timestamp: time.Unix(100, 0)}
	newer := &SummaryResult{TLDR: "new", Timestamp: time.Unix(200, 0)}

	if !cs.SetSummaryIfNewer(older) {
		t.Fatal("expected first summary to be accepted")
	}
	if cs.SetSummaryIfNewer(&SummaryResult{TLDR: "stale", Timestamp: time.Unix(50, 0)}) {
		t.Fatal("expected older summary to be rejected")
	}
	if !cs.SetSummaryIfNewer(newer) {
		t.Fatal("expected newer summary to be accepted")
	}
	if cs.CurrentSummary.TLDR != "new" {
		t.Fatalf("CurrentSummary.TLDR = %q, want %q", cs.CurrentSummary.TLDR, "new")
	}
}

func TestConversationState_AddMessage_TracksParticipants(t *testing.T) {
	cs := NewConversationState("tenant-a", "conv-1")
	cs.AddMessage(NewSupportMessage("tenant-a", "conv-1", SenderCustomer, ChannelChat, "hi", nil), 0)
	cs.AddMessage(NewSupportMessage("tenant-a", "conv-1", SenderAgent, ChannelChat, "hello", nil), 0)
	cs.AddMessage(NewSupportMessage("tenant-a", "conv-1", SenderCustomer, ChannelChat, "thanks", nil), 0)

	if len(cs.Participants) != 2 {
		t.Fatalf("participants = %v, want 2 distinct", cs.Participants)
	}
}
