package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLoggerWritesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, zerolog.DebugLevel)

	l.Warn("temp file not deleted", F("path", "/tmp/NanoHTTPD-1"), F("error", errors.New("busy")))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "temp file not deleted", entry["message"])
	assert.Equal(t, "/tmp/NanoHTTPD-1", entry["path"])
	assert.Equal(t, "busy", entry["error"])
}

func TestZeroLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(buf, zerolog.InfoLevel)

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSanitizeValueTruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := sanitizeValue(long).(string)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("a", 100)))
	assert.True(t, strings.HasSuffix(got, "...[truncated]"))

	assert.Equal(t, "short", sanitizeValue("short"))
	assert.Equal(t, 42, sanitizeValue(42))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}
