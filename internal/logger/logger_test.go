package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, Level("DEBUG"))
	assert.Equal(t, slog.LevelInfo, Level("INFO"))
	assert.Equal(t, slog.LevelWarn, Level("WARN"))
	assert.Equal(t, slog.LevelError, Level("ERROR"))
	assert.Equal(t, slog.LevelInfo, Level("bogus"))
}

func TestSetup(t *testing.T) {
	orig := slog.Default()
	defer slog.SetDefault(orig)

	var buf bytes.Buffer
	l := Setup(Options{Verbosity: "WARN", Writer: &buf})
	assert.Same(t, l, slog.Default())

	l.Info("hidden")
	l.Warn("shown", "collection", "users")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "collection=users")
	// no escape codes when not writing to a terminal
	assert.NotContains(t, out, "\x1b[")
}
