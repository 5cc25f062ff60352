package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1.2, cfg.Search.K1)
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "v1", cfg.Interp.ContentVersion)
	assert.Equal(t, 30*24*time.Hour, cfg.Cache.TTL)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	// Given: no explicit path and no ephemeris.yaml in the working dir
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(orig) })

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Default().Search, cfg.Search)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ephemeris.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  k1: 1.5
  alpha: 0.8
interp:
  content_version: "v7"
cache:
  addr: "localhost:6379"
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.Search.K1)
	assert.Equal(t, 0.8, cfg.Search.Alpha)
	assert.Equal(t, "v7", cfg.Interp.ContentVersion)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)

	// Untouched sections keep their defaults.
	assert.Equal(t, 0.75, cfg.Search.B)
	assert.Equal(t, "interp-7b", cfg.Interp.Model)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ephemeris.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interp:
  content_version: "v2"
`), 0o644))
	t.Setenv("EPHEMERIS_CONTENT_VERSION", "v3")
	t.Setenv("EPHEMERIS_REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "v3", cfg.Interp.ContentVersion)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"non-positive k1", func(c *Config) { c.Search.K1 = 0 }},
		{"b out of range", func(c *Config) { c.Search.B = 1.5 }},
		{"alpha out of range", func(c *Config) { c.Search.Alpha = -0.1 }},
		{"non-positive rrf constant", func(c *Config) { c.Search.RRFConstant = 0 }},
		{"non-positive dimensions", func(c *Config) { c.Vector.Dimensions = 0 }},
		{"unknown metric", func(c *Config) { c.Vector.Metric = "dot" }},
		{"empty content version", func(c *Config) { c.Interp.ContentVersion = "" }},
		{"empty model", func(c *Config) { c.Interp.Model = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ZeroWorkersGetsDefault(t *testing.T) {
	cfg := Default()
	cfg.Interp.Workers = 0

	require.NoError(t, cfg.Validate())
	assert.Greater(t, cfg.Interp.Workers, 0)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ephemeris.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [not a map"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestSave_Roundtrip(t *testing.T) {
	cfg := Default()
	cfg.Search.Alpha = 0.42
	path := filepath.Join(t.TempDir(), "nested", "ephemeris.yaml")

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.42, loaded.Search.Alpha)
}
