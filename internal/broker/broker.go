// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package broker

import (
	"context"
	"errors"
)

// ErrClosed is returned by Adapter operations after Close has been called.
var ErrClosed = errors.New("broker: adapter is closed")

// ErrInvalidConfig is returned when an Adapter is constructed with an
// incomplete or contradictory configuration.
var ErrInvalidConfig = errors.New("broker: invalid configuration")

// HeaderTenantID carries the tenant identity on every message, independent
// of the payload encoding, so routing and DLQ inspection never require a
// payload decode.
const HeaderTenantID = "tenant_id"

// HeaderRetryCount tracks how many times a record has been redelivered
// after a handler error, incremented by the caller before each retry.
const HeaderRetryCount = "retry_count"

// HeaderProducer names the component that published the message, useful
// when tracing a record's path across the five downstream topics.
const HeaderProducer = "producer"

// Message is a single record read from a topic. Key is the partitioning
// key used for ordering (conversation_id in every topic this pipeline
// defines). Offset is the broker-assigned sequence number within the
// topic, used by consumers to resolve last-write-wins races between
// analyzer results that arrive out of order.
type Message struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
	Offset  int64

	ack  func()
	nack func()
}

// Ack commits the message, telling the broker it will not be redelivered.
func (m *Message) Ack() {
	if m.ack != nil {
		m.ack()
	}
}

// Nack releases the message for redelivery.
func (m *Message) Nack() {
	if m.nack != nil {
		m.nack()
	}
}

// Adapter is the pipeline's sole dependency on the underlying durable log.
// Every component (Processor, Analyzer Workers, Aggregator, Broadcaster)
// talks to the broker only through this interface, so the backing
// transport can be swapped without touching pipeline logic.
type Adapter interface {
	// EnsureTopic idempotently provisions a topic (and its backing stream)
	// so producers and consumers never race against topic creation.
	EnsureTopic(ctx context.Context, topic string) error

	// Publish writes payload to topic under the given partition key, with
	// headers attached. Delivery is circuit-breaker protected; a tripped
	// breaker returns an error immediately rather than blocking.
	Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error

	// Consume returns a channel of messages for the given topics, load
	// balanced across every process sharing group. The channel closes when
	// ctx is canceled; the memory adapter also closes it on Close, while
	// the NATS adapter's Close stops delivery without closing it.
	Consume(ctx context.Context, group string, topics ...string) (<-chan *Message, error)

	// Close releases all broker connections and stops delivery to every
	// Consume channel.
	Close() error
}

// NewMessage constructs a Message with working Ack/Nack hooks. Adapter
// implementations use this instead of the zero value so callers outside
// the package can never construct a Message whose acknowledgement is a
// silent no-op.
func NewMessage(topic, key string, payload []byte, headers map[string]string, offset int64, ack, nack func()) *Message {
	return &Message{
		Topic:   topic,
		Key:     key,
		Payload: payload,
		Headers: headers,
		Offset:  offset,
		ack:     ack,
		nack:    nack,
	}
}
