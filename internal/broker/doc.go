// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package broker defines the Adapter interface the rest of the pipeline uses
to read and write the durable log, plus two implementations:

  - natsAdapter, backed by NATS JetStream. Publish goes through a
    Watermill publisher (github.com/ThreeDotsLabs/watermill-nats) wrapped in
    a gobreaker circuit breaker; Consume uses the nats.go jetstream package
    directly so every delivered Message carries its exact stream sequence
    number as Offset.
  - memoryAdapter, an in-process channel-backed implementation with no
    external dependencies, used by the unit tests.

Topics are provisioned idempotently via EnsureTopic before any component
starts publishing or consuming, mirroring the StreamInitializer pattern:
safe to call on every boot; once the stream exists the NATS adapter
re-applies the same stream configuration instead of creating it again.
*/
package broker
