package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/config"
)

type testConfig struct {
	Name     string        `env:"TEST_CFG_NAME" envDefault:"fallback"`
	Workers  int           `env:"TEST_CFG_WORKERS" envDefault:"10"`
	Interval time.Duration `env:"TEST_CFG_INTERVAL" envDefault:"30s"`
}

type requiredConfig struct {
	Token string `env:"TEST_CFG_MISSING_TOKEN,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "fallback", cfg.Name)
	assert.Equal(t, 10, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Interval)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	t.Setenv("TEST_CFG_NAME", "from-env")
	t.Setenv("TEST_CFG_WORKERS", "3")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoad_NilPointer(t *testing.T) {
	var cfg *testConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
}

func TestLoad_RequiredMissing(t *testing.T) {
	var cfg requiredConfig
	assert.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
}

func TestLoadEnv_NonExistentFile(t *testing.T) {
	assert.ErrorIs(t, config.LoadEnv("testdata/does-not-exist.env"), config.ErrLoadingEnvFiles)
}

func TestMustLoad_PanicsOnFailure(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}
