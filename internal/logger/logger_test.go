package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/essay-arena/internal/config"
	"go.uber.org/zap/zapcore"
)

func TestBuild_FileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{
		Level:  "debug",
		Format: "json",
		Output: "file",
		File: config.LogFileConfig{
			Path:     dir,
			Filename: "test.log",
			MaxSize:  1,
		},
		Modules: map[string]string{ModuleAttack: "warn"},
	}

	built, modules, err := build(cfg)
	require.NoError(t, err)
	require.Contains(t, modules, ModuleAttack)

	built.Info("hello")
	modules[ModuleAttack].Info("filtered")
	modules[ModuleAttack].Warn("kept")
	require.NoError(t, built.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "filtered")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("unknown"))
}

func TestSetLevel(t *testing.T) {
	SetLevel("error")
	assert.Equal(t, zapcore.ErrorLevel, Level())
	SetLevel("info")
	assert.Equal(t, zapcore.InfoLevel, Level())
}
