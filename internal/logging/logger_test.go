// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]interface{}
	if err := json.Unmarshal(lines[len(lines)-1], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, lines[len(lines)-1])
	}
	return entry
}

func TestComponent_TagsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewTestLogger(&buf), "processor")

	logger.Info().Msg("started")

	entry := lastLine(t, &buf)
	if entry["component"] != "processor" {
		t.Fatalf("component = %v, want processor", entry["component"])
	}
	if entry["message"] != "started" {
		t.Fatalf("message = %v, want started", entry["message"])
	}
}

func TestWithConversation_CarriesIdentityPair(t *testing.T) {
	var buf bytes.Buffer
	logger := WithConversation(NewTestLogger(&buf), "acme", "c1")

	logger.Warn().Msg("summary for unknown conversation")

	entry := lastLine(t, &buf)
	if entry["tenant_id"] != "acme" || entry["conversation_id"] != "c1" {
		t.Fatalf("identity fields = %v/%v, want acme/c1", entry["tenant_id"], entry["conversation_id"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":     zerolog.DebugLevel,
		"info":      zerolog.InfoLevel,
		"":          zerolog.InfoLevel,
		"warn":      zerolog.WarnLevel,
		"warning":   zerolog.WarnLevel,
		"error":     zerolog.ErrorLevel,
		"gibberish": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_AppliesLevel(t *testing.T) {
	defer Init(Config{})

	Init(Config{Level: "error"})
	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Fatalf("global level = %v, want error", zerolog.GlobalLevel())
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("RequestIDFromContext = %q, want req-42", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("RequestIDFromContext on empty context = %q, want empty", got)
	}
}
