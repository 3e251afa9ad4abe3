package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "debug")
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "msg=dbg", "a=1",
		"level=INFO", "msg=inf", "b=2",
		"level=WARN", "msg=wrn", "c=3",
		"level=ERROR", "msg=err", "d=4",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "text", "warn")

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSlogLogger_JSONWith(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info").With("component", "report")

	log.Info(context.Background(), "stored", "interview_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stored", line["msg"])
	assert.Equal(t, "report", line["component"])
	assert.Equal(t, "abc", line["interview_id"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With("k", "v").Error(context.Background(), "dropped")
	})
}
