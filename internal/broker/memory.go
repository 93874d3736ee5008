// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package broker

import (
	"context"
	"sync"

	"github.com/threadline-dev/threadline/internal/metrics"
)

// memoryAdapter is an in-process Adapter backed by Go channels. It
// implements the full Adapter contract (topic provisioning, headers,
// partition key, ack/nack) so tests can run the whole pipeline without a
// NATS instance.
type memoryAdapter struct {
	mu         sync.Mutex
	topics     map[string]bool
	subs       map[string][]chan *Message
	closed     bool
	nextOffset map[string]int64
}

// NewMemoryAdapter returns an Adapter with no external dependencies.
func NewMemoryAdapter() Adapter {
	return &memoryAdapter{
		topics:     make(map[string]bool),
		subs:       make(map[string][]chan *Message),
		nextOffset: make(map[string]int64),
	}
}

func (a *memoryAdapter) EnsureTopic(_ context.Context, topic string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.topics[topic] = true
	return nil
}

func (a *memoryAdapter) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	offset := a.nextOffset[topic]
	a.nextOffset[topic] = offset + 1
	subs := append([]chan *Message{}, a.subs[topic]...)
	a.mu.Unlock()

	hdrs := make(map[string]string, len(headers))
	for k, v := range headers {
		hdrs[k] = v
	}

	for _, ch := range subs {
		msg := NewMessage(topic, key, payload, hdrs, offset, func() {}, func() {})
		ch <- msg
	}

	metrics.BrokerMessagesProduced.WithLabelValues(topic).Inc()
	return nil
}

func (a *memoryAdapter) Consume(ctx context.Context, _ string, topics ...string) (<-chan *Message, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil, ErrClosed
	}
	out := make(chan *Message)
	perTopic := make([]chan *Message, 0, len(topics))
	for _, topic := range topics {
		ch := make(chan *Message, 64)
		a.subs[topic] = append(a.subs[topic], ch)
		perTopic = append(perTopic, ch)
	}
	a.mu.Unlock()

	var wg sync.WaitGroup
	for _, ch := range perTopic {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- msg:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (a *memoryAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	for _, chans := range a.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	return nil
}
