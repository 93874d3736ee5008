// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package broadcaster fans out every
AggregatedIntelligence update to the websocket subscribers currently
watching that (tenant, conversation), and delivers a snapshot immediately
on subscribe so a late joiner never waits for the next update to see
where a conversation stands.

Each subscriber has a bounded outbound queue (BroadcasterConfig.
SubscriberQueueDepth). A slow reader never blocks the publisher: once its
queue is full, the oldest queued event is dropped to make room for the
newest one, since a stale partial view is worse than a gap. Dropped
events are counted in metrics.BroadcasterDroppedEvents.

Each subscriber gets a bounded send channel, a ping/pong liveness loop,
and a process-unique ID drawn from an atomic counter. Fan-out is scoped to
one conversation's subscribers rather than every connected client, and
the overflow policy is oldest-dropped rather than newest-dropped.
*/
package broadcaster
