// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelclient provides the single facade every Analyzer Worker
// calls into the generative model through. It owns the shared rate
// limiter, concurrency semaphore, and circuit breaker, builds prompts in
// a fixed structured-text format, and parses responses back into typed
// results. Permanent failures - retry exhaustion, circuit open, or an
// unparseable response - never surface as an error; callers receive the
// deterministic fallback value for that operation instead.
package modelclient
