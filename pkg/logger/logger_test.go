package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user", "ana", "api_key", "abc", "refresh_token", "xyz", "dangling"})

	assert.Equal(t, []interface{}{"user", "ana", "api_key", "[REDACTED]", "refresh_token", "[REDACTED]", "dangling"}, out)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLevel("warning").String())
	assert.Equal(t, "info", parseLevel("").String())
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := NewNop().With("component", "test")
	l.Info("hello", "k", 1)
	l.Warn("odd number of args", "k")
}
