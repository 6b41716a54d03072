package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToZapFields_Types(t *testing.T) {
	fields := toZapFields([]Field{
		String("s", "v"),
		Int("i", 1),
		Int64("i64", int64(2)),
		Float64("f", 0.5),
		Bool("b", true),
		Duration("d", time.Second),
		Err(errors.New("boom")),
		Any("a", map[string]int{"x": 1}),
	})
	assert.Len(t, fields, 8)
	assert.Equal(t, "s", fields[0].Key)
	assert.Equal(t, "error", fields[6].Key)
}

func TestErr_Nil(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestZapLogger_EmitsEntries(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core)

	log.Info("snapshot built", Int("nodes", 42), Int("edges", 97))
	log.Warn("convergence not reached", Int("iterations", 100))

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "snapshot built", entries[0].Message)
	assert.Equal(t, int64(42), entries[0].ContextMap()["nodes"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	log := NewLoggerFromCore(core).Named("engine").With(String("run_id", "r1"))

	log.Debug("seeding")

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "engine", entries[0].LoggerName)
	assert.Equal(t, "r1", entries[0].ContextMap()["run_id"])
}

func TestNewLogger_Defaults(t *testing.T) {
	log, err := NewLogger(Config{})
	require.NoError(t, err)
	require.NotNil(t, log)
	// Must not panic.
	log.Info("started")
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.Info("discarded")
	assert.Equal(t, log, log.With(String("k", "v")))
	assert.Equal(t, log, log.Named("x"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("anything"))
}
