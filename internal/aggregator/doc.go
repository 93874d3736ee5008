// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package aggregator subscribes to the four analyzer result topics and
folds whatever arrives into a single
AggregatedIntelligence per (tenant, conversation), handling four distinct
payload shapes without a shared class hierarchy.

Dispatch is structural rather than topic-based: each decoded payload is
inspected for a distinguishing field (tldr, has_pii, intent, sentiment)
and routed through a small dispatch table to its merge function, so the
Aggregator tolerates a heterogeneous or evolving encoding on any one
topic. Merge semantics differ by field: sentiment, insights, and summary
are last-offset-wins; PII is a monotonic OR plus a deduplicated entity
union, because PII, once observed for a conversation, must never
un-flag it.
*/
package aggregator
