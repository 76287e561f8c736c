package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	SetLoggerForTest(zerolog.New(buf).With().Timestamp().Logger())
	t.Cleanup(func() {
		SetLoggerForTest(zerolog.New(os.Stderr).With().Timestamp().Logger())
	})
	return buf
}

func TestInfoWritesStructuredFields(t *testing.T) {
	buf := captureLogs(t)

	Info("QR code generated", "size", 300, "cached", true)

	var entry map[string]interface{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "QR code generated", entry["message"])
	assert.Equal(t, float64(300), entry["size"])
	assert.Equal(t, true, entry["cached"])
	assert.Contains(t, entry, "time")
}

func TestWarnAndErrorLevels(t *testing.T) {
	buf := captureLogs(t)

	Warn("cache unavailable", "host", "localhost:6379")
	Error("render failed", "error", "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Contains(t, lines[0], `"host":"localhost:6379"`)
	assert.Contains(t, lines[1], `"level":"error"`)
	assert.Contains(t, lines[1], `"error":"boom"`)
}

func TestWithFieldsSkipsDanglingKey(t *testing.T) {
	buf := captureLogs(t)

	Info("partial", "a", 1, "dangling")

	assert.Contains(t, buf.String(), `"a":1`)
	assert.NotContains(t, buf.String(), "dangling")
}

func TestSetLogLevelFiltersDebug(t *testing.T) {
	buf := captureLogs(t)

	SetLogLevel("info")
	Debug("hidden")
	Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")

	buf.Reset()
	SetLogLevel("debug")
	Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetLogLevelBadLevelFallsBackToInfo(t *testing.T) {
	buf := captureLogs(t)

	SetLogLevel("nonsense")
	Debug("hidden")
	Info("visible")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")
}

func TestInitLoggerCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	file := dir + "/app.log"

	InitLogger(file, 1, 1, 1, false, "info")
	t.Cleanup(func() {
		SetLoggerForTest(zerolog.New(os.Stderr).With().Timestamp().Logger())
	})

	Info("hello from file")

	data, err := os.ReadFile(file)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "hello from file")
}
