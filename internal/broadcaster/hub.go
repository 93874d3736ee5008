// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package broadcaster

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/threadline-dev/threadline/internal/config"
	"github.com/threadline-dev/threadline/internal/logging"
	"github.com/threadline-dev/threadline/internal/metrics"
	"github.com/threadline-dev/threadline/internal/models"
)

// Event is the envelope written to every subscriber connection.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

const (
	EventTypeConnected          = "connected"
	EventTypeIntelligenceUpdate = "intelligence_update"
	EventTypePong               = "pong"
)

var subscriberIDCounter atomic.Uint64

// Subscriber is one live websocket connection scoped to a single
// conversation. Hub owns its lifecycle; Serve (subscriber.go) runs the
// connection's read/write pumps.
type Subscriber struct {
	id   uint64
	key  models.ConversationKey
	send chan Event

	hub *Hub
}

// Hub fans AggregatedIntelligence updates out to subscribers, scoped per
// (tenant, conversation). It owns no broker or websocket connection
// directly - those live in subscriber.go and the HTTP surface.
type Hub struct {
	cfg    config.BroadcasterConfig
	logger zerolog.Logger

	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

// NewHub constructs a Hub.
func NewHub(cfg config.BroadcasterConfig, logger zerolog.Logger) *Hub {
	return &Hub{
		cfg:    cfg,
		logger: logging.Component(logger, "broadcaster"),
		subs:   make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new Subscriber for key and enqueues the connected
// envelope as its first event, carrying snapshot (nil if the pipeline has
// not yet produced any partial result for key) so a subscriber sees the
// current state immediately rather than waiting for the next update.
func (h *Hub) Subscribe(key models.ConversationKey, snapshot *models.AggregatedIntelligence) *Subscriber {
	depth := h.cfg.SubscriberQueueDepth
	if depth <= 0 {
		depth = 64
	}
	sub := &Subscriber{
		id:   subscriberIDCounter.Add(1),
		key:  key,
		send: make(chan Event, depth),
		hub:  h,
	}

	h.mu.Lock()
	set, ok := h.subs[key.String()]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.subs[key.String()] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	metrics.BroadcasterActiveSubscribers.Inc()

	var data interface{}
	if snapshot != nil {
		data = snapshot
	}
	sub.enqueue(Event{Type: EventTypeConnected, Data: data})
	return sub
}

// Unsubscribe removes sub and closes its send channel. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	set, ok := h.subs[sub.key.String()]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := set[sub]; !present {
		h.mu.Unlock()
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.key.String())
	}
	h.mu.Unlock()

	close(sub.send)
	metrics.BroadcasterActiveSubscribers.Dec()
}

// Publish fans ai out to every subscriber currently watching its
// (tenant, conversation). Wired as the Aggregator's UpdateFunc by the
// Pipeline Supervisor.
func (h *Hub) Publish(ai models.AggregatedIntelligence) {
	key := ai.Key()

	h.mu.RLock()
	set := h.subs[key.String()]
	subs := make([]*Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.enqueue(Event{Type: EventTypeIntelligenceUpdate, Data: ai})
	}
}

// SubscriberCount reports how many subscribers are watching key.
func (h *Hub) SubscriberCount(key models.ConversationKey) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key.String()])
}

// enqueue delivers event to sub's bounded queue, dropping the oldest
// queued event to make room if the queue is full. Subscribe enqueues the
// connected event and Hub.Publish every later one, possibly at the same
// time; the loop retries until its send lands, so a concurrent producer
// costs at most another dropped event, never a blocked publisher.
func (s *Subscriber) enqueue(event Event) {
	for {
		select {
		case s.send <- event:
			return
		default:
			select {
			case <-s.send:
				metrics.BroadcasterDroppedEvents.Inc()
			default:
			}
		}
	}
}
