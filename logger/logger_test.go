package logger

import (
	"os"
	"path/filepath"
	"testing"

	"tradegateway/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaultsLevel(t *testing.T) {
	log, err := New(config.LogConfig{})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

// go test -v --run TestNewWithFile
func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gateway.log")

	log, err := New(config.LogConfig{Level: "debug", Format: "json", OutputFile: path})
	require.NoError(t, err)

	log.Info("hello")
	_ = log.Sync()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err, "log directory should be created")
}
