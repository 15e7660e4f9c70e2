package logging

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, name := range LevelNames {
		_, err := ParseLevel(name)
		assert.NoError(t, err, name)
	}

	level, err := ParseLevel("critical")
	require.NoError(t, err)
	assert.Equal(t, LevelCritical, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestHandler_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelTrace, 3, 16)

	log.Info("store", "size", 10)

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\[000003\|16\] \[\d{2}:\d{2}:\d{2}\.\d{3}\] \[INFO\] store size=10\n$`), line)
}

func TestHandler_LevelNames(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelTrace, 0, 1)

	log.Log(context.Background(), LevelTrace, "a")
	log.Debug("b")
	log.Warn("c")
	log.Error("d")
	log.Log(context.Background(), LevelCritical, "e")

	out := buf.String()
	assert.Contains(t, out, "[TRACE] a")
	assert.Contains(t, out, "[DEBUG] b")
	assert.Contains(t, out, "[WARNING] c")
	assert.Contains(t, out, "[ERROR] d")
	assert.Contains(t, out, "[CRITICAL] e")
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn, 0, 1)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestHandler_OffSuppressesEverything(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelOff, 0, 1)

	log.Error("nope")
	log.Log(context.Background(), LevelCritical, "still no")
	assert.Empty(t, buf.String())
}

func TestHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelTrace, 0, 1).With("rank", 0)

	log.WithGroup("store").Info("op", "size", 5)

	line := buf.String()
	assert.Contains(t, line, "rank=0")
	assert.Contains(t, line, "store.size=5")
}
