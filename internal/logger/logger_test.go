package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn").With("run", "abc")

	log.Info("hidden")
	log.Warn("unknown attribute", "name", "Hp")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "unknown attribute")
	assert.Contains(t, out, "name=Hp")
	assert.Contains(t, out, "run=abc")
}
