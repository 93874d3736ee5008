// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package analyzer implements the four Analyzer Workers: independent
suture.Services that each subscribe to conversations.state under their own
consumer group, call one Model Client operation, and produce a typed
result to their own topic. Running each analyzer under its own group lets
the four operate at different speeds against the same conversations.state
stream without any one of them pacing the others.

Every worker stamps its result's Offset with the broker offset of the
conversations.state record that triggered it, not a value minted by the
analyzer itself. Since conversations.state records for one conversation
are strictly ordered within their partition, this gives the Aggregator a
consistent last-writer-wins signal across all four analyzers regardless
of how fast any one of them runs.
*/
package analyzer
