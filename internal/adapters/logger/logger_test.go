package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestPrettyHandler_Levels(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		msg    string
		golden string
	}{
		{"info", slog.LevelInfo, "tier 1 complete", "handler_info"},
		{"warn", slog.LevelWarn, "stale lock reclaimed", "handler_warn"},
		{"error", slog.LevelError, "tool crashed", "handler_error"},
		{"debug is filtered", slog.LevelDebug, "hidden", "handler_debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")

			buf := &bytes.Buffer{}
			lg := slog.New(logger.NewPrettyHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
			lg.Log(t.Context(), tt.level, tt.msg)

			goldie.New(t).Assert(t, tt.golden, buf.Bytes())
		})
	}
}

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := slog.New(logger.NewPrettyHandler(buf, nil)).With("tool", "docs").WithGroup("cache")
	lg.Info("hit", "domain", "core")

	assert.Equal(t, "hit cache.tool=docs cache.domain=core\n", buf.String())
}

func TestLogger_Error_Pretty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	l := logger.New()
	l.SetOutput(buf)

	l.Error(zerr.Wrap(zerr.New("lock is held by another run"), "audit aborted"))
	goldie.New(t).Assert(t, "logger_error_chain", buf.Bytes())

	buf.Reset()
	l.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_JSONMode(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logger.New()
	l.SetOutput(buf)
	l.SetJSON(true)

	l.Warn("cache entry is corrupt")
	l.Error(zerr.With(zerr.Wrap(zerr.New("disk full"), "failed to write report"), "path", ".sift/results.json"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var warn map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &warn))
	assert.Equal(t, "WARN", warn["level"])
	assert.Equal(t, "cache entry is corrupt", warn["msg"])

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "failed to write report", rec["msg"])
	assert.Equal(t, "failed to write report: disk full", rec["error"])
	assert.Equal(t, ".sift/results.json", rec["path"])
}
