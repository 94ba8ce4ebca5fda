package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authgate/pkg/config"
)

type cachedConfig struct {
	Name    string        `env:"CONFIG_TEST_CACHED_NAME" envDefault:"authgate"`
	Timeout time.Duration `env:"CONFIG_TEST_CACHED_TIMEOUT" envDefault:"5s"`
}

type freshConfig struct {
	Port int `env:"CONFIG_TEST_FRESH_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("parses values and caches per type", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_CACHED_NAME", "first")

		var first cachedConfig
		require.NoError(t, config.Load(&first))
		assert.Equal(t, "first", first.Name)
		assert.Equal(t, 5*time.Second, first.Timeout)

		t.Setenv("CONFIG_TEST_CACHED_NAME", "second")
		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Name)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[cachedConfig](nil), config.ErrNilPointer)
	})

	t.Run("required value missing is retried after fix", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.ErrorIs(t, err, config.ErrParsingConfig)

		t.Setenv("CONFIG_TEST_REQUIRED_SECRET", "s3cret")
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "s3cret", cfg.Secret)
	})
}

func TestParse(t *testing.T) {
	t.Setenv("CONFIG_TEST_FRESH_PORT", "9000")
	var cfg freshConfig
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, 9000, cfg.Port)

	t.Setenv("CONFIG_TEST_FRESH_PORT", "9001")
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, 9001, cfg.Port)

	t.Setenv("CONFIG_TEST_FRESH_PORT", "not-a-number")
	assert.ErrorIs(t, config.Parse(&cfg), config.ErrParsingConfig)
}
