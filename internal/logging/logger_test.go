package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/benedictfischer09/sourcecode-verifier/internal/reconcile"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantError bool
	}{
		{name: "valid json debug", level: "debug", format: "json"},
		{name: "valid console info", level: "info", format: "console"},
		{name: "valid json warn", level: "warn", format: "json"},
		{name: "valid console error", level: "error", format: "console"},
		{name: "invalid level", level: "invalid", format: "json", wantError: true},
		{name: "invalid format", level: "info", format: "invalid", wantError: true},
		{name: "case insensitive level", level: "INFO", format: "json"},
		{name: "case insensitive format", level: "info", format: "JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantError {
				require.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := NewObserver(zap.New(core))

	obs.TreeMissing(reconcile.SideSource, "/tmp/source")
	obs.PathFailed(&reconcile.ComparisonIOError{
		Side: reconcile.SideArtifact,
		Path: "lib/a.rb",
		Err:  errors.New("permission denied"),
	})
	obs.DiffFailed("lib/b.rb", errors.New("git exited"))

	entries := logs.All()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, zapcore.WarnLevel, e.Level)
		assert.Equal(t, "reconcile", e.LoggerName)
	}

	assert.Equal(t, "source", entries[0].ContextMap()["side"])
	assert.Equal(t, "/tmp/source", entries[0].ContextMap()["root"])
	assert.Equal(t, "lib/a.rb", entries[1].ContextMap()["path"])
	assert.Equal(t, "permission denied", entries[1].ContextMap()["error"])
	assert.Equal(t, "lib/b.rb", entries[2].ContextMap()["path"])
}

func TestObserver_NilLogger(t *testing.T) {
	obs := NewObserver(nil)
	obs.TreeMissing(reconcile.SideArtifact, "/nowhere")
}
