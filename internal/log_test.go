package internal

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel(" WARNING "))
	assert.Equal(t, LogLevelError, ParseLogLevel("ERROR"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("chatty"))
}

func TestLoggerGatesByLevel(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := NewLogger(LogLevelWarn)
	l.Debug("hidden %d", 1)
	l.Info("hidden too")
	l.Warn("shown %s", "warn")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "[WARN] shown warn")

	l.SetLevel(LogLevelDebug)
	l.Debug("[Test] now %s", "visible")
	assert.Contains(t, buf.String(), "[DEBUG] [Test] now visible")
}
