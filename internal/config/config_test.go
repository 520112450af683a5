package config

import (
	"bytes"
	"flag"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(newFlagSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 10000, cfg.CatalogCacheCapacity)
	assert.Equal(t, "10M", cfg.BodyLimit)
	assert.InDelta(t, 10.0, cfg.WriteRate, 1e-9)
	assert.Equal(t, 20, cfg.WriteBurst)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":5000", cfg.Addr())
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("STOREFRONT_PORT", "6000")
	t.Setenv("STOREFRONT_ENV", "Production")
	t.Setenv("STOREFRONT_CATALOG_CACHE_TTL", "30s")

	cfg, err := ParseConfig(newFlagSet(), []string{"-port", "7000", "-host", "127.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.ListingCacheConfig().TTL)
	assert.Equal(t, 10000, cfg.ListingCacheConfig().Capacity)
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	tests := map[string][]string{
		"unknown driver":       {"-db-driver", "mysql"},
		"postgres without dsn": {"-db-driver", "postgres"},
		"bad environment":      {"-env", "staging"},
		"bad log level":        {"-log-level", "loud"},
		"zero capacity":        {"-catalog-cache-capacity", "0"},
		"port out of range":    {"-port", "70000"},
		"unknown flag":         {"-nope"},
		"malformed ttl":        {"-catalog-cache-ttl", "soon"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(newFlagSet(), args)
			assert.Error(t, err)
		})
	}
}

func TestParseConfigBadEnv(t *testing.T) {
	t.Setenv("STOREFRONT_PORT", "not-a-port")
	_, err := ParseConfig(newFlagSet(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestStorageOptions(t *testing.T) {
	cfg := Config{DBDriver: "postgres", DSN: "postgres://localhost/shop"}
	opts := cfg.StorageOptions()
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, "postgres://localhost/shop", opts.DSN)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	Config{Environment: EnvProduction, LogLevel: "warn"}.NewLogger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Config{Environment: EnvProduction, LogLevel: "warn"}.NewLogger(&buf).Warn("shown")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"service":"storefront"`)

	buf.Reset()
	Config{Environment: EnvDevelopment, LogLevel: "debug"}.NewLogger(&buf).Debug("text")
	assert.Contains(t, buf.String(), "msg=text")
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}
