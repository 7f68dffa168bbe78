// FriendCircle - Live Location Sharing with Friends
// Copyright 2026 FriendCircle contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/friendcircle/friendcircle

package logging

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitAndLevels(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(Config{Output: io.Discard})

	Info().Msg("info suppressed")
	Warn().Msg("warn emitted")

	out := buf.String()
	if strings.Contains(out, "info suppressed") {
		t.Error("info message emitted at warn level")
	}
	if !strings.Contains(out, "warn emitted") {
		t.Error("warn message not emitted")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"ERROR", zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(Config{Output: io.Discard})

	hubLogger := WithComponent("hub")
	hubLogger.Info().Msg("started")

	if !strings.Contains(buf.String(), `"component":"hub"`) {
		t.Errorf("component field missing in output: %s", buf.String())
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("empty context returned request ID %q", got)
	}

	id := GenerateRequestID()
	if id == "" {
		t.Fatal("GenerateRequestID returned empty string")
	}

	ctx = ContextWithRequestID(ctx, id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("RequestIDFromContext = %q, want %q", got, id)
	}
}

func TestCtxAttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	defer Init(Config{Output: io.Discard})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	Ctx(ctx).Info().Msg("handled")

	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("request_id missing in output: %s", buf.String())
	}
}

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "alice", "alice"},
		{"newline stripped", "ali\nce", "alice"},
		{"carriage return stripped", "ali\rce", "alice"},
		{"control stripped", "ali\x00ce", "alice"},
		{"long truncated", strings.Repeat("a", 150), strings.Repeat("a", 100) + "..."},
	}
	for _, tt := range tests {
		if got := SanitizeValue(tt.input); got != tt.want {
			t.Errorf("%s: SanitizeValue = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken(""); got != "" {
		t.Errorf("empty token sanitized to %q", got)
	}
	if got := SanitizeToken("short"); got != "***" {
		t.Errorf("short token sanitized to %q", got)
	}
	long := "eyJhbGciOiJIUzI1NiJ9.payload.sig"
	got := SanitizeToken(long)
	if !strings.HasPrefix(got, "eyJh") || !strings.HasSuffix(got, ".sig") {
		t.Errorf("long token sanitized to %q", got)
	}
	if strings.Contains(got, "payload") {
		t.Errorf("token body leaked: %q", got)
	}
}

func TestNewSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Output: &buf})
	defer Init(Config{Output: io.Discard})

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", "service", "hub")

	out := buf.String()
	if !strings.Contains(out, "supervisor event") {
		t.Errorf("message missing in output: %s", out)
	}
	if !strings.Contains(out, `"service":"hub"`) {
		t.Errorf("attribute missing in output: %s", out)
	}
}
