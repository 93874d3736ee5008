// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package pipeline wires and supervises the full Processor -> Analyzer
Workers -> Aggregator -> Broadcaster chain behind a
thejerf/suture/v4 tree. Layering mirrors failure isolation needs: a
crash restarts only the failing stage, never the whole pipeline.

Layers:
  - ingest: the Processor, the only service that may produce to
    conversations.state.
  - analysis: the four Analyzer Workers, independent of each other.
  - aggregation: the Aggregator, which also drives the in-process
    Broadcaster callback.

The Model Client and Broadcaster Hub are plain long-lived values owned by
the Supervisor, not suture.Services themselves - neither blocks on
anything that benefits from supervised restart; the Model Client already
retries internally, and the Broadcaster Hub has no loop to crash.
*/
package pipeline
