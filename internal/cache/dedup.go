// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"container/list"
	"sync"
	"time"
)

// Dedup remembers recently seen string keys inside a sliding window, in
// recency order so the oldest key is shed first when the capacity bound
// is hit. The ingestion handler keys it by tenant plus idempotency_key to
// recognize a client retry without publishing the message twice.
type Dedup struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	elems    map[string]*list.Element
	order    *list.List
}

type dedupEntry struct {
	key    string
	seenAt time.Time
}

// NewDedup returns a Dedup tracking at most capacity keys, each
// recognized for window after it was last seen.
func NewDedup(capacity int, window time.Duration) *Dedup {
	if capacity <= 0 {
		capacity = 1
	}
	return &Dedup{
		capacity: capacity,
		window:   window,
		elems:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Seen reports whether key was already seen within the window, and in
// every case records this sighting as the most recent one.
func (d *Dedup) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if elem, ok := d.elems[key]; ok {
		entry := elem.Value.(*dedupEntry)
		duplicate := now.Sub(entry.seenAt) <= d.window
		entry.seenAt = now
		d.order.MoveToFront(elem)
		return duplicate
	}

	d.elems[key] = d.order.PushFront(&dedupEntry{key: key, seenAt: now})
	for d.order.Len() > d.capacity {
		oldest := d.order.Back()
		d.order.Remove(oldest)
		delete(d.elems, oldest.Value.(*dedupEntry).key)
	}
	return false
}

// Len reports how many keys are currently tracked.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
