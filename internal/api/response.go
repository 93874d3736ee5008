// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/threadline-dev/threadline/internal/logging"
)

// errorEnvelope is the JSON body for any rejected request. It intentionally
// stays narrower than a generic problem-details schema: the rejections
// this package produces (validation, not-found, and encode or
// broker-unavailable failures on ingestion) are each named by Code.
type errorEnvelope struct {
	Status    string    `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("api: failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("api: failed to write response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorEnvelope{
		Status:    "error",
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
