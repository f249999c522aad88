package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"DEBUG", LevelDebug},
		{"WARNING", LevelWarn},
		{"dEbUg", LevelDebug},
		{"Error", LevelError},

		// Empty and unrecognized default to Info
		{"", LevelInfo},
		{"trace", LevelInfo},
		{"fatal", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"Json", FormatJSON},
		{"text", FormatText},
		{"", FormatText},
		{"yaml", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFormat(tt.input))
		})
	}
}

func TestNew_Format(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelDebug, Format: FormatJSON, Output: &buf})
	log.Debug("no contract matched", "destination", "orders")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "no contract matched", rec["msg"])
	assert.Equal(t, "orders", rec["destination"])

	buf.Reset()
	New(Config{Level: LevelInfo, Output: &buf}).Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contractd.log")
	var buf bytes.Buffer

	log, closeFn, err := Open(Config{Level: LevelInfo, Output: &buf, File: path})
	require.NoError(t, err)
	log.Info("routed message", "contract", "order accepted")
	log.Debug("hidden")
	require.NoError(t, closeFn())

	assert.Contains(t, buf.String(), "routed message")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &rec))
	assert.Equal(t, "order accepted", rec["contract"])

	_, _, err = Open(Config{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("boom") }

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: LevelWarn}),
	)
	log := slog.New(h).With("component", "router")
	log.Debug("debug only")
	log.Warn("both")

	assert.Contains(t, a.String(), "debug only")
	assert.Contains(t, a.String(), "component=router")
	assert.NotContains(t, b.String(), "debug only")
	assert.Contains(t, b.String(), "both")
	assert.False(t, h.Enabled(context.Background(), LevelDebug-4))

	failing := NewMultiHandler(failingHandler{slog.NewTextHandler(&a, nil)}, slog.NewTextHandler(&b, nil))
	err := failing.Handle(context.Background(), slog.NewRecord(time.Time{}, LevelError, "x", 0))
	assert.EqualError(t, err, "boom")
}
