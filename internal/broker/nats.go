// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/threadline-dev/threadline/internal/metrics"
)

// Config configures a NATS JetStream-backed Adapter.
type Config struct {
	URL                 string
	ConsumerGroupPrefix string
	MaxReconnects       int
	ReconnectWait       time.Duration
	AckWaitTimeout      time.Duration
	MaxDeliver          int
	StreamReplicas      int
	// StreamName groups every topic this pipeline defines under one
	// JetStream stream. Topics are NATS subjects within it.
	StreamName string
	// StreamSubjects lists the subjects (topics, possibly wildcarded) the
	// stream accepts. EnsureTopic provisions the stream with exactly this
	// list; a topic outside it is not added.
	StreamSubjects []string
}

// natsAdapter is the JetStream-backed Adapter implementation. Publish goes
// through a Watermill publisher so failure handling matches the rest of
// the ecosystem's Watermill usage; Consume uses the raw jetstream consumer
// API directly because last-write-wins merge logic in the Aggregator
// needs the exact stream sequence number per message, which Watermill's
// message.Message does not expose.
type natsAdapter struct {
	cfg Config

	conn *natsgo.Conn
	js   jetstream.JetStream

	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	logger    watermill.LoggerAdapter

	mu        sync.Mutex
	closed    bool
	consumers []jetstream.ConsumeContext
}

// NewNATSAdapter connects to NATS and returns an Adapter backed by
// JetStream. The stream named cfg.StreamName is not created here; call
// EnsureTopic (or Bootstrap) before the first Publish/Consume.
func NewNATSAdapter(cfg Config, logger watermill.LoggerAdapter) (Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if cfg.StreamName == "" {
		return nil, fmt.Errorf("%w: stream name is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("broker disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("broker reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	conn, err := natsgo.Connect(cfg.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}
	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "broker-publish",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &natsAdapter{
		cfg:       cfg,
		conn:      conn,
		js:        js,
		publisher: pub,
		breaker:   breaker,
		logger:    logger,
	}, nil
}

// EnsureTopic creates the backing stream on first call; once the stream
// exists it re-applies the same stream configuration via UpdateStream.
// The topic argument is not consulted: subjects are declared up front via
// Config.StreamSubjects so individual topics never need their own stream.
func (a *natsAdapter) EnsureTopic(ctx context.Context, topic string) error {
	streamCfg := jetstream.StreamConfig{
		Name:        a.cfg.StreamName,
		Subjects:    a.cfg.StreamSubjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Replicas:    a.cfg.StreamReplicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}
	if streamCfg.Replicas <= 0 {
		streamCfg.Replicas = 1
	}

	_, err := a.js.Stream(ctx, a.cfg.StreamName)
	if err == nil {
		_, err = a.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return fmt.Errorf("update stream %s: %w", a.cfg.StreamName, err)
		}
		return nil
	}
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		_, err = a.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return fmt.Errorf("create stream %s: %w", a.cfg.StreamName, err)
		}
		return nil
	}
	return fmt.Errorf("check stream %s: %w", a.cfg.StreamName, err)
}

// Publish sends payload to topic via the Watermill publisher, circuit
// breaker protected. The partition key is attached as a header since NATS
// subjects carry no separate key field.
func (a *natsAdapter) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return ErrClosed
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("key", key)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	for k, v := range headers {
		msg.Metadata.Set(k, v)
	}

	_, err := a.breaker.Execute(func() (interface{}, error) {
		return nil, a.publisher.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	metrics.BrokerMessagesProduced.WithLabelValues(topic).Inc()
	return nil
}

// Consume starts a durable pull consumer per topic, named after group, and
// fans every topic's deliveries into a single channel.
func (a *natsAdapter) Consume(ctx context.Context, group string, topics ...string) (<-chan *Message, error) {
	out := make(chan *Message)
	var wg sync.WaitGroup

	for _, topic := range topics {
		durable := fmt.Sprintf("%s-%s", a.cfg.ConsumerGroupPrefix, group)

		cons, err := a.js.CreateOrUpdateConsumer(ctx, a.cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       sanitizeDurableName(durable, topic),
			FilterSubject: topic,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       a.cfg.AckWaitTimeout,
			MaxDeliver:    a.cfg.MaxDeliver,
			DeliverPolicy: jetstream.DeliverNewPolicy,
		})
		if err != nil {
			return nil, fmt.Errorf("create consumer for %s: %w", topic, err)
		}

		topic := topic
		consCtx, err := cons.Consume(func(msg jetstream.Msg) {
			meta, metaErr := msg.Metadata()
			var offset int64
			if metaErr == nil {
				offset = int64(meta.Sequence.Stream)
			}

			headers := make(map[string]string, len(msg.Headers()))
			for k := range msg.Headers() {
				headers[k] = msg.Headers().Get(k)
			}
			key := headers["key"]
			delete(headers, "key")

			out <- NewMessage(topic, key, msg.Data(), headers, offset,
				func() { _ = msg.Ack() },
				func() { _ = msg.Nak() },
			)
		})
		if err != nil {
			return nil, fmt.Errorf("start consuming %s: %w", topic, err)
		}

		a.mu.Lock()
		a.consumers = append(a.consumers, consCtx)
		a.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			consCtx.Stop()
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// Close shuts down the publisher and every active consumer.
func (a *natsAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	for _, c := range a.consumers {
		c.Stop()
	}
	err := a.publisher.Close()
	a.conn.Close()
	return err
}

// sanitizeDurableName produces a valid JetStream durable consumer name
// from a group and a topic, which may itself contain dots.
func sanitizeDurableName(group, topic string) string {
	replaced := make([]byte, 0, len(topic))
	for i := 0; i < len(topic); i++ {
		if topic[i] == '.' || topic[i] == '*' || topic[i] == '>' {
			replaced = append(replaced, '_')
			continue
		}
		replaced = append(replaced, topic[i])
	}
	return group + "-" + string(replaced)
}
