// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package processor implements the Conversation Processor: the single
stateful component that folds messages.raw and ai.summary records into a
per-conversation ConversationState, keeping the Analyzer Workers fed with a
bounded recent-message window and a compact running summary.

The package's one subtle invariant is the loop guard: state is produced to
conversations.state only in response to a messages.raw record, never in
response to an ai.summary record. Summaries are derived from state, and
state would otherwise be re-derived from summaries, closing an unbounded
cycle between the Processor and the Summary analyzer.
*/
package processor
