// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package middleware provides the HTTP middleware the pipeline's ambient
surface composes in api.NewRouter: request-id stamping, Prometheus
instrumentation, gzip compression, and an in-process latency monitor
backing /debug/performance.

Two constraints shape these implementations:

  - The subscribe route upgrades to a websocket, so every wrapper either
    passes http.Hijacker through or steps aside entirely for Upgrade
    requests; a wrapper that swallows Hijacker breaks the upgrade
    handshake.
  - Routes embed tenant and conversation ids, so anything that labels a
    metric or a latency bucket keys by the chi route pattern
    (/v1/conversations/{tenant}/{conversation}), never the raw URL path,
    to keep cardinality bounded.
*/
package middleware
