// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package metrics provides Prometheus metrics collection and export for observability.

The package instruments every pipeline stage:

  - Broker: produced-message counts, per topic (the consume-count and
    publish-latency series are registered but no adapter records them)
  - Model client: request latency, retries, fallback rate, rate-limiter wait time
  - Processor/Aggregator: records processed, merge counts
  - Broadcaster: active subscribers, dropped events

Metrics are exposed at /metrics in Prometheus text format via promhttp.Handler().

Recording is thread-safe; the Prometheus client library synchronizes internally.
*/
package metrics
