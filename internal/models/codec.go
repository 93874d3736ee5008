// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"github.com/goccy/go-json"
)

// Marshal encodes v using the pipeline's self-describing text wire format.
// Every component that produces to a topic goes through this, so swapping
// the format (e.g. to a compact binary encoding) is a one-file change.
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data produced by Marshal into v.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// DLQEnvelope is the payload produced to the dlq topic for a record that
// could not be processed after retry exhaustion.
type DLQEnvelope struct {
	OriginalTopic string            `json:"original_topic"`
	Payload       []byte            `json:"payload"`
	Error         string            `json:"error"`
	RetryCount    int               `json:"retry_count"`
	Timestamp     string            `json:"timestamp"`
	Headers       map[string]string `json:"headers,omitempty"`
}
