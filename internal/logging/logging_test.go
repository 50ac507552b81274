package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kubesphere/devworkspace-operator/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("workspace provisioned", "workspace", "alice")
	logger.V(1).Info("debug detail")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "workspace provisioned", entries[0]["msg"])
	assert.Equal(t, "alice", entries[0]["workspace"])
	assert.Equal(t, "info", entries[0]["level"])
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)

	logger.V(1).Info("debug detail")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug detail", entries[0]["msg"])
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "console"}, &buf)

	logger.Info("workspace provisioned")

	out := buf.String()
	assert.Contains(t, out, "workspace provisioned")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, FormatJSON, ResolveFormat("json", &buf))
	assert.Equal(t, FormatConsole, ResolveFormat("CONSOLE", &buf))
	assert.Equal(t, FormatJSON, ResolveFormat("auto", &buf))
	assert.Equal(t, FormatJSON, ResolveFormat("", &buf))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("ERROR"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}
