package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/cropyield.yaml", []byte(`
data:
  path: /data/yield_df.csv
  watch: true
server:
  addr: 127.0.0.1:9000
cache:
  expiration: 5m
log:
  level: DEBUG
  format: json
`), 0o644))

	cfg, err := Load(fs, "/etc/cropyield.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "/data/yield_df.csv", cfg.Data.Path)
	require.True(t, cfg.Data.Watch)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	require.Equal(t, 5*time.Minute, cfg.Cache.Expiration)
	require.Equal(t, 2*time.Hour, cfg.Cache.CleanupInterval, "unset keys keep defaults")
	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnv(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte("data:\n  path: env.csv\n"), 0o644))
	t.Setenv(EnvConfigPath, "/cfg.yaml")

	cfg, err := Load(fs, "")
	require.NoError(t, err)
	require.Equal(t, "env.csv", cfg.Data.Path)
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, "/missing.yaml")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("data: [unclosed"), 0o644))
	_, err = Load(fs, "/bad.yaml")
	require.Error(t, err)
}

func TestValidateReportsFields(t *testing.T) {
	cfg := Default()
	cfg.Data.Path = ""
	cfg.Server.Addr = "not an address"
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Config.Data.Path")
	require.Contains(t, err.Error(), "Config.Server.Addr")
	require.Contains(t, err.Error(), "Config.Log.Level")
}
