package config

import (
	"log/slog"
	"testing"
)

func TestSlogLevel(t *testing.T) {
	cases := []struct {
		logLevel string
		want     slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tc := range cases {
		cfg := &Config{LogLevel: tc.logLevel}
		if got := cfg.SlogLevel(); got != tc.want {
			t.Errorf("SlogLevel() with LOG_LEVEL=%q = %v, want %v", tc.logLevel, got, tc.want)
		}
	}
}

func TestLoadConfig_RequiredFields(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_URL_ANON_KEY", "key")
	t.Setenv("MONGODB_URI", "mongodb://localhost")
	t.Setenv("MONGODB_PASSWORD", "secret")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	if _, err := LoadConfig(); err == nil {
		t.Error("LoadConfig should fail without SUPABASE_URL")
	}

	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("default port = %s, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log level = %s, want info", cfg.LogLevel)
	}
}
