package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(WithOutput(buf), WithLevel(LevelDebug))

	log.Debug("syncing", "payees", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "syncing", entry["msg"])
	assert.Equal(t, float64(3), entry["payees"])
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(WithOutput(buf), WithLevel(LevelWarn))

	log.Info("dropped")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{" WARN ", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
		{"verbose", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input).String())
		})
	}
}

func TestWithContextAddsRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(WithOutput(buf))

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	WithContext(ctx, log).Info("hello")

	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
}

func TestWithContextWithoutRequestID(t *testing.T) {
	log := New(WithOutput(&bytes.Buffer{}))
	assert.Same(t, log, WithContext(context.Background(), log))
}
