package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/config"
)

type storageConfig struct {
	URL          string        `env:"TK_TEST_DB_URL,required"`
	MaxConns     int32         `env:"TK_TEST_DB_MAX_CONNS" envDefault:"5"`
	RetryBackoff time.Duration `env:"TK_TEST_RETRY_BACKOFF" envDefault:"30s"`
}

type nested struct {
	Storage storageConfig
	Header  string `env:"TK_TEST_HEADER" envDefault:"X-Tenant-Slug"`
}

func TestLoad(t *testing.T) {
	t.Run("parses values and defaults", func(t *testing.T) {
		t.Setenv("TK_TEST_DB_URL", "postgres://localhost/shared")
		t.Setenv("TK_TEST_DB_MAX_CONNS", "12")

		var cfg nested
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "postgres://localhost/shared", cfg.Storage.URL)
		assert.Equal(t, int32(12), cfg.Storage.MaxConns)
		assert.Equal(t, 30*time.Second, cfg.Storage.RetryBackoff)
		assert.Equal(t, "X-Tenant-Slug", cfg.Header)
	})

	t.Run("missing required value", func(t *testing.T) {
		var cfg storageConfig
		err := config.Load(&cfg, config.WithPrefix("ABSENT_"))
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("prefix namespaces keys", func(t *testing.T) {
		t.Setenv("REPLICA_TK_TEST_DB_URL", "postgres://replica/shared")

		var cfg storageConfig
		require.NoError(t, config.Load(&cfg, config.WithPrefix("REPLICA_")))
		assert.Equal(t, "postgres://replica/shared", cfg.URL)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *storageConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("must load panics on error", func(t *testing.T) {
		var cfg storageConfig
		assert.Panics(t, func() {
			config.MustLoad(&cfg, config.WithPrefix("MISSING_"))
		})
	})
}
