package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{" WARN ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "level %q", tt.in)
		} else {
			assert.NoError(t, err, "level %q", tt.in)
		}
		assert.Equal(t, tt.want, got, "level %q", tt.in)
	}
}

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", JSON: true, Writer: &buf, Service: "familygraph"})

	logger.Info("dropped")
	logger.Warn("kept", "tree_id", "t1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "exactly one JSON record expected")
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "t1", record["tree_id"])
	assert.Equal(t, "familygraph", record["service"])
}

func TestNewTextHandler(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "debug", Writer: &buf}).Debug("hello", "member_id", "m1")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "member_id=m1")
}
