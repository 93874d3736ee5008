// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"testing"
	"time"
)

func TestDedup_SecondSightingIsDuplicate(t *testing.T) {
	d := NewDedup(16, time.Minute)

	if d.Seen("tenant:key-1") {
		t.Fatal("first sighting reported as duplicate")
	}
	if !d.Seen("tenant:key-1") {
		t.Fatal("second sighting within the window not reported as duplicate")
	}
	if d.Seen("tenant:key-2") {
		t.Fatal("distinct key reported as duplicate")
	}
}

func TestDedup_WindowExpires(t *testing.T) {
	d := NewDedup(16, 10*time.Millisecond)

	d.Seen("k")
	time.Sleep(20 * time.Millisecond)

	if d.Seen("k") {
		t.Fatal("sighting after the window elapsed reported as duplicate")
	}
}

// The capacity bound sheds the least recently seen key first.
func TestDedup_CapacityShedsOldest(t *testing.T) {
	d := NewDedup(2, time.Minute)

	d.Seen("a")
	d.Seen("b")
	d.Seen("a") // refresh recency; b is now oldest
	d.Seen("c") // evicts b

	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if !d.Seen("a") {
		t.Fatal("refreshed key was shed")
	}
	if d.Seen("b") {
		t.Fatal("shed key still recognized as duplicate")
	}
}
