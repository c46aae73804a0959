package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfig_Defaults(t *testing.T) {
	c, err := NewConfig("test", nil)
	require.NoError(t, err)
	require.Equal(t, Default(), c)
	require.Equal(t, zapcore.InfoLevel, c.Level())
}

func TestNewConfig_FileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xmlocaf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":4000"
store_interval: 1m
restore: false
copyright: "(c) file"
rate_limit: 20
log_level: debug
`), 0o600))

	c, err := NewConfig("test", []string{"-CONFIG", path, "-LISTEN", ":5000"})
	require.NoError(t, err)
	require.Equal(t, ":5000", c.Listen)
	require.Equal(t, time.Minute, c.StoreInterval)
	require.False(t, c.Restore)
	require.Equal(t, "(c) file", c.Copyright)
	require.Equal(t, 20.0, c.RateLimit)
	require.Equal(t, zapcore.DebugLevel, c.Level())
	require.Equal(t, "db/documents", c.StoreDir)
}

func TestNewConfig_Errors(t *testing.T) {
	_, err := NewConfig("test", []string{"-LOG_LEVEL", "loud"})
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewConfig("test", []string{"-RATE_LIMIT", "-1"})
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewConfig("test", []string{"-CONFIG", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [1, 2"), 0o600))
	_, err = NewConfig("test", []string{"-CONFIG", path})
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewConfig("test", []string{"-NOPE"})
	require.Error(t, err)
}
