package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info message written at warn level: %s", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn message missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"ERROR": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := WithFields(NewWithWriter(&buf, "info"), map[string]any{"user_id": "u1"})

	ctx := WithContext(context.Background(), log)
	got := FromContext(ctx)
	got.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"user_id":"u1"`) {
		t.Errorf("field missing from output: %s", buf.String())
	}
}

func TestFromContext_Missing(t *testing.T) {
	log := FromContext(context.Background())
	log.Info().Msg("discarded")
}
