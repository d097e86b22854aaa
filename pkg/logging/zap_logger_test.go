package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, logs := newObserved(zapcore.DebugLevel)

	l.Debug("debugging", StringField("key", "text:popup.js"))
	l.Info("resolved", IntField("count", 3))
	l.Warn("skipped", BoolField("known", false))
	l.Error("failed", ErrorField(assert.AnError))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "text:popup.js", entries[0].ContextMap()["key"])
	assert.Equal(t, int64(3), entries[1].ContextMap()["count"])
	assert.Equal(t, false, entries[2].ContextMap()["known"])
	assert.Equal(t, assert.AnError.Error(), entries[3].ContextMap()["error"])
}

func TestZapLogger_WithFields(t *testing.T) {
	l, logs := newObserved(zapcore.InfoLevel)

	child := l.WithFields(StringField("run_id", "abc"))
	child.Info("evaluated", IntField("outcomes", 2))

	entries := logs.FilterMessage("evaluated").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "abc", ctx["run_id"])
	assert.Equal(t, int64(2), ctx["outcomes"])
}

func TestZapLogger_RespectsLevel(t *testing.T) {
	l, logs := newObserved(zapcore.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	assert.Equal(t, 1, logs.Len())
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "conformance.log")

	l, err := NewLogger(LoggerConfig{
		OutputPath: path,
		Level:      LevelInfo,
		Format:     FormatJSON,
		Fields:     map[string]any{"component": "test"},
	})
	require.NoError(t, err)

	l.Debug("not written")
	l.Info("written", StringField("root", "/ext"))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "written", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "/ext", entry["root"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	l, err := NewLogger(LoggerConfig{
		OutputPath: path,
		Format:     FormatConsole,
	})
	require.NoError(t, err)

	l.Info("hello console")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello console")
}

func TestNewLogger_UnknownFormat(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}
