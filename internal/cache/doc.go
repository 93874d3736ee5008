// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package cache provides the three bounded in-memory structures the
pipeline's hot paths need, each shaped for exactly one call site:

  - LFU bounds the Processor's ConversationState map, keyed by
    (tenant, conversation), so idle conversations are evicted from
    memory under a capacity limit instead of growing unboundedly across
    tenants. Eviction only drops the cache entry, never the broker's
    authoritative log.
  - TTL fronts the intelligence read endpoint with a short-lived
    snapshot per conversation key, so repeated polling of one
    conversation does not contend with the Aggregator's merge loop for
    its read lock.
  - Dedup backs the ingestion handler's idempotency_key window, so a
    client's retried POST within the window is acknowledged without a
    second publish.

None of the three spawns a background goroutine; expired entries are
reaped lazily on access.
*/
package cache
