package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/config"
)

type sessionConfig struct {
	File    string        `env:"SESSION_FILE" envDefault:"session.json"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type requiredConfig struct {
	APIKey string `env:"API_KEY,required"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var cfg sessionConfig
		require.NoError(t, config.Load(&cfg, config.WithEnvironment(map[string]string{})))
		assert.Equal(t, "session.json", cfg.File)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
	})

	t.Run("explicit environment with prefix", func(t *testing.T) {
		t.Parallel()

		var cfg sessionConfig
		err := config.Load(&cfg,
			config.WithPrefix("IDENTITY_"),
			config.WithEnvironment(map[string]string{
				"IDENTITY_SESSION_FILE": "/tmp/s.json",
				"IDENTITY_TIMEOUT":      "3s",
			}),
		)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/s.json", cfg.File)
		assert.Equal(t, 3*time.Second, cfg.Timeout)
	})

	t.Run("missing required value", func(t *testing.T) {
		t.Parallel()

		var cfg requiredConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{}))
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()

		var cfg *requiredConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Parallel()

	var cfg requiredConfig
	assert.Panics(t, func() {
		config.MustLoad(&cfg, config.WithEnvironment(map[string]string{}))
	})
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ENCY_LOADFILES_PROBE=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("ENCY_LOADFILES_PROBE") })

	require.NoError(t, config.LoadFiles(path))
	assert.Equal(t, "from-file", os.Getenv("ENCY_LOADFILES_PROBE"))

	assert.ErrorIs(t, config.LoadFiles(filepath.Join(dir, "missing.env")), config.ErrLoadingFile)
}
