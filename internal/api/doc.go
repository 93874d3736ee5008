// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package api implements the external HTTP surface: message ingestion,
the intelligence read lookup, and the websocket subscribe stream. It
owns no pipeline state of its own - ingestion talks to the
broker.Adapter, the read and stream endpoints talk to the
aggregator.Aggregator and broadcaster.Hub the Pipeline Supervisor
already constructed. This keeps the HTTP surface a thin collaborator
rather than a second source of truth for conversation state.

Routing uses a chi.Mux with a global middleware stack (request ID,
recoverer, CORS, Prometheus, compression, performance tracking), then
route groups per endpoint. The http.HandlerFunc-style middleware in
internal/middleware is adapted to chi's func(http.Handler) http.Handler
signature via the chiMiddleware helper.
*/
package api
