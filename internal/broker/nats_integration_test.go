// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build integration

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/threadline-dev/threadline/internal/testinfra"
)

// TestNATSAdapter_Integration exercises the real Adapter against a NATS
// JetStream container instead of the in-memory fake, catching anything the
// memory adapter's simplified semantics would miss (stream provisioning,
// durable consumer naming, ack/nak wiring).
func TestNATSAdapter_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	nats, err := testinfra.NewNATSContainer(ctx)
	if err != nil {
		t.Fatalf("start nats container: %v", err)
	}
	defer func() {
		if err := nats.Terminate(ctx); err != nil {
			t.Logf("warning: failed to terminate nats container: %v", err)
		}
	}()

	adapter, err := NewNATSAdapter(Config{
		URL:                 nats.URL,
		ConsumerGroupPrefix: "threadline-it",
		MaxReconnects:       5,
		ReconnectWait:       time.Second,
		AckWaitTimeout:      10 * time.Second,
		MaxDeliver:          3,
		StreamReplicas:      1,
		StreamName:          "threadline-it",
		StreamSubjects:      []string{"messages.raw", "ai.sentiment"},
	}, nil)
	if err != nil {
		t.Fatalf("connect adapter: %v", err)
	}
	defer func() { _ = adapter.Close() }()

	if err := adapter.EnsureTopic(ctx, "messages.raw"); err != nil {
		t.Fatalf("EnsureTopic: %v", err)
	}

	msgs, err := adapter.Consume(ctx, "worker-a", "messages.raw")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}

	if err := adapter.Publish(ctx, "messages.raw", "conv-1", []byte(`{"hello":"world"}`), map[string]string{"tenant_id": "acme"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-msgs:
		if string(msg.Payload) != `{"hello":"world"}` {
			t.Fatalf("unexpected payload: %s", msg.Payload)
		}
		if msg.Key != "conv-1" {
			t.Fatalf("key = %q, want conv-1", msg.Key)
		}
		msg.Ack()
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for delivered message")
	}
}
