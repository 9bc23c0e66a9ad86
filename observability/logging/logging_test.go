package logging

import (
	"log/slog"
	"testing"
)

func TestLevelFromEnv(t *testing.T) {
	cases := []struct {
		raw  string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
		{"  info  ", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := levelFromEnv(tc.raw); got != tc.want {
			t.Fatalf("levelFromEnv(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestRenameCoreFields(t *testing.T) {
	got := renameCoreFields(nil, slog.Attr{Key: slog.TimeKey, Value: slog.StringValue("now")})
	if got.Key != "timestamp" {
		t.Fatalf("time key renamed to %q", got.Key)
	}
	got = renameCoreFields(nil, slog.Attr{Key: slog.LevelKey, Value: slog.StringValue("warn")})
	if got.Key != "severity" || got.Value.String() != "WARN" {
		t.Fatalf("level attr = %v", got)
	}
	got = renameCoreFields(nil, slog.Attr{Key: slog.MessageKey, Value: slog.StringValue("hi")})
	if got.Key != "message" {
		t.Fatalf("message key renamed to %q", got.Key)
	}
	got = renameCoreFields(nil, slog.Attr{Key: "custom", Value: slog.StringValue("v")})
	if got.Key != "custom" {
		t.Fatalf("custom key touched: %q", got.Key)
	}
}
