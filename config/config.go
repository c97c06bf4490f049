package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIG — YAML settings for the cropyield service and CLI
// ============================================================================
// Load order: defaults, then the YAML file (when given), then CLI overrides
// applied by the caller. Validate runs last.
// ============================================================================

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "CROPYIELD_CONFIG"

// Config is the root of the YAML document.
type Config struct {
	Data   DataConfig   `yaml:"data"`
	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
}

// DataConfig points at the yield CSV.
type DataConfig struct {
	Path  string `yaml:"path" validate:"required"`
	Watch bool   `yaml:"watch"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gte=0"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// CacheConfig tunes the aggregation cache.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Expiration      time.Duration `yaml:"expiration" validate:"gte=0"`
	CleanupInterval time.Duration `yaml:"cleanupInterval" validate:"gte=0"`
}

// LogConfig drives logging.New.
type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=console json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"gte=0"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Data: DataConfig{Path: "yield_df.csv"},
		Server: ServerConfig{
			Addr:            ":8050",
			ShutdownTimeout: 10 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Cache: CacheConfig{
			Enabled:         true,
			Expiration:      time.Hour,
			CleanupInterval: 2 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path from fs on top of Default. An empty path falls back to
// $CROPYIELD_CONFIG; when that is empty too the defaults are returned as is.
// The result is not validated so callers can apply overrides first.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapPrefix(err, "read config "+path, 0)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapPrefix(err, "parse config "+path, 0)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint and reports them together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, 0)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+" failed '"+fe.Tag()+"'")
	}
	return errors.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
