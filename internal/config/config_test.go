// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import "testing"

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestValidate_RejectsMissingBrokerURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Broker.EmbeddedServer = false
	cfg.Broker.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing broker.url with embedded_server=false")
	}
}

func TestValidate_RejectsNonPositiveRates(t *testing.T) {
	cfg := defaultConfig()
	cfg.Model.RequestsPerMinute = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for requests_per_minute=0")
	}
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestEnvTransformFunc_MapsKnownKeys(t *testing.T) {
	if got := envTransformFunc("MODEL_MOCK_MODE"); got != "model.mock_mode" {
		t.Fatalf("MODEL_MOCK_MODE -> %q, want model.mock_mode", got)
	}
	if got := envTransformFunc("BROKER_URL"); got != "broker.url" {
		t.Fatalf("BROKER_URL -> %q, want broker.url", got)
	}
}

func TestEnvTransformFunc_DropsUnknownKeys(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Fatalf("unmapped env var leaked through as %q", got)
	}
}

func TestGracePeriod(t *testing.T) {
	cfg := ShutdownConfig{GraceSeconds: 5}
	if cfg.GracePeriod().Seconds() != 5 {
		t.Fatalf("GracePeriod() = %v, want 5s", cfg.GracePeriod())
	}
}
