package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewWithOptions(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "zortify.log")

	log := NewWithOptions(Options{Level: "warn", Path: path, Console: &console})
	log.Info("hidden")
	log.Warn("Playlist processing stalled", zap.String("playlist_id", "p1"))
	require.NoError(t, log.Sync())

	lines := bytes.Split(bytes.TrimSpace(console.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "Playlist processing stalled", entry["msg"])
	assert.Equal(t, "p1", entry["playlist_id"])
	assert.Contains(t, entry, "timestamp")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Playlist processing stalled")
}
