// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import "context"

type contextKey struct{}

var requestIDKey contextKey

// ContextWithRequestID attaches the HTTP request id the ingestion and
// read surface stamps on every request.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id attached by
// ContextWithRequestID, or "" when the context carries none.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
