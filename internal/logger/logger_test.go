package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"dataset", "police", "api_key", "abc", "Authorization", "Bearer x", "dangling"})
	assert.Equal(t, []interface{}{"dataset", "police", "api_key", "[REDACTED]", "Authorization", "[REDACTED]", "dangling"}, out)
}

func TestLoggerWithRedacts(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("run_id", "r1").Info("fetched", "records", 3, "token", "secret-value")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "r1", fields["run_id"])
		assert.Equal(t, int64(3), fields["records"])
		assert.Equal(t, "[REDACTED]", fields["token"])
	}
}
