package logs

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/availability-scheduling/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.Config{Env: "prod", LogLevel: "warn"}, "api-server")

	logger.Info("dropped")
	logger.Warn("slot lock contended", slog.String("slot_id", "abc"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "slot lock contended", rec["msg"])
	assert.Equal(t, "api-server", rec["service"])
	assert.Equal(t, "prod", rec["env"])
	assert.Equal(t, "abc", rec["slot_id"])
}

func TestNewWithWriterDevText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.Config{Env: "dev", LogLevel: "debug"}, "seed")
	logger.Debug("seeding")
	assert.Contains(t, buf.String(), "msg=seeding")
	assert.Contains(t, buf.String(), "service=seed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
