package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.log")
	console := false

	cfg := &Config{
		Level:      "DEBUG",
		Filename:   filename,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
		Compress:   false,
		Console:    &console,
	}

	log, err := InitLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, log)
	assert.Same(t, log, Log)

	Log.Info("Test log message")
	Sync()

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"msg":"Test log message"`))
	assert.True(t, strings.Contains(string(data), `"level":"INFO"`))
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	cfg := &Config{
		Level:    "INVALID",
		Filename: filepath.Join(t.TempDir(), "test_invalid.log"),
	}

	_, err := InitLogger(cfg)
	assert.Error(t, err)
}
