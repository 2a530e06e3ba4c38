package internal

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"ERROR":  LogLevelError,
		"warn":   LogLevelWarn,
		" INFO ": LogLevelInfo,
		"debug":  LogLevelDebug,
		"TRACE":  LogLevelTrace,
		"":       LogLevelInfo,
		"bogus":  LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestLoggerFiltersByLevelAndTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	l := NewLogger(LogLevelInfo).WithComponent("Search")
	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] [Search] shown 2")
	assert.Equal(t, LogLevelInfo, l.GetLevel())
}
