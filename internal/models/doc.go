// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package models defines the pipeline's wire entities: raw
messages, conversation state, the four analyzer result types, and the
aggregated intelligence view. All timestamps are UTC; all identifiers are
opaque strings. Encoding is goccy/go-json (a drop-in, faster encoding/json),
chosen as the compact-when-possible, always-self-describing wire format used
on every broker topic.
*/
package models
