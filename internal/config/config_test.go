package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.MetricsNamespace != "aikon" {
		t.Fatalf("MetricsNamespace = %q", cfg.MetricsNamespace)
	}
	if cfg.GenAIAdapterMode != "auto" || cfg.GenAIModel != "gemini-2.0-flash" {
		t.Fatalf("genai defaults = %q / %q", cfg.GenAIAdapterMode, cfg.GenAIModel)
	}
	if cfg.StreamMinChars != 24 {
		t.Fatalf("StreamMinChars = %d", cfg.StreamMinChars)
	}
	if cfg.ToolDispatchTimeout != 30*time.Second {
		t.Fatalf("ToolDispatchTimeout = %v", cfg.ToolDispatchTimeout)
	}
	if cfg.SessionInactivityTimeout != 30*time.Minute {
		t.Fatalf("SessionInactivityTimeout = %v", cfg.SessionInactivityTimeout)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if cfg.AllowAnyOrigin {
		t.Fatal("AllowAnyOrigin should default off")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9999")
	t.Setenv("GENAI_ADAPTER_MODE", "mock")
	t.Setenv("STREAM_MIN_CHARS", "48")
	t.Setenv("TOOL_DISPATCH_TIMEOUT", "10s")
	t.Setenv("APP_SESSION_INACTIVITY_TIMEOUT", "2m")
	t.Setenv("APP_ALLOW_ANY_ORIGIN", "yes")
	t.Setenv("GENAI_API_KEY", "  padded  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9999" || cfg.GenAIAdapterMode != "mock" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.StreamMinChars != 48 || cfg.ToolDispatchTimeout != 10*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.SessionInactivityTimeout != 2*time.Minute {
		t.Fatalf("SessionInactivityTimeout = %v", cfg.SessionInactivityTimeout)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatal("AllowAnyOrigin should be on")
	}
	if cfg.GenAIAPIKey != "padded" {
		t.Fatalf("GenAIAPIKey = %q, want trimmed", cfg.GenAIAPIKey)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad duration", "TOOL_DISPATCH_TIMEOUT", "soon"},
		{"negative dispatch timeout", "TOOL_DISPATCH_TIMEOUT", "-5s"},
		{"bad int", "STREAM_MIN_CHARS", "lots"},
		{"zero min chars", "STREAM_MIN_CHARS", "0"},
		{"bad bool", "APP_ALLOW_ANY_ORIGIN", "maybe"},
		{"inactivity too short", "APP_SESSION_INACTIVITY_TIMEOUT", "1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() should reject %s=%q", tt.key, tt.value)
			}
		})
	}
}
