// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/threadline-dev/threadline/internal/logging"
)

// HeaderRequestID is the header a request id is accepted from (an
// upstream proxy may have assigned one) and echoed back on.
const HeaderRequestID = "X-Request-ID"

// RequestID stamps every request with an id, echoes it to the client,
// and attaches it to the request context so downstream log lines (e.g.
// the slow-request warning in PerformanceMonitor) can carry it.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)
		next(w, r.WithContext(logging.ContextWithRequestID(r.Context(), requestID)))
	}
}
