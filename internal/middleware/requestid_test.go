// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/threadline-dev/threadline/internal/logging"
)

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	echoed := rec.Header().Get(HeaderRequestID)
	if echoed == "" {
		t.Fatal("expected a generated request id on the response")
	}
	if seen != echoed {
		t.Fatalf("context id %q != echoed id %q", seen, echoed)
	}
}

func TestRequestID_KeepsUpstreamID(t *testing.T) {
	h := RequestID(func(http.ResponseWriter, *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "proxy-assigned")
	rec := httptest.NewRecorder()
	h(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "proxy-assigned" {
		t.Fatalf("request id = %q, want the upstream-assigned one", got)
	}
}
