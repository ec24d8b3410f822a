package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	lvl, err := Options{}.level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = Options{Level: "WARN"}.level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	lvl, err = Options{Level: "error", Verbose: true}.level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = Options{Level: "chatty"}.level()
	assert.Error(t, err)
}

func TestTUIWithoutFileDiscards(t *testing.T) {
	logger, err := NewTUI(Options{Level: "debug"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestTUIWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "legiscope.log")
	logger, err := NewTUI(Options{File: path})
	require.NoError(t, err)

	logger.Info("request completed")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"request completed"`)
}

func TestCLIRejectsUnknownLevel(t *testing.T) {
	_, err := NewCLI(Options{Level: "loud"})
	assert.Error(t, err)
}
