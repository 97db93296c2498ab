package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsBadInput(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = New(Config{Format: "xml"})
	assert.ErrorContains(t, err, "invalid log format")
}

func TestNewWritesJSON(t *testing.T) {
	out := filepath.Join(t.TempDir(), "autoftp.log")
	logger, atom, err := New(Config{Level: "warn", Format: "json", OutputPath: out})
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, atom.Level())

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"msg":"kept"`)
}

func TestInitAndSetLevel(t *testing.T) {
	out := filepath.Join(t.TempDir(), "autoftp.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", OutputPath: out}))

	assert.False(t, L().Core().Enabled(zapcore.DebugLevel))
	require.NoError(t, SetLevel("debug"))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
	assert.Error(t, SetLevel("nope"))
}
