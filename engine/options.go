package engine

import (
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for NewCachedAggregator()
// ============================================================================

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	CacheEnabled    bool
	Expiration      time.Duration
	CleanupInterval time.Duration
	Logger          *zap.Logger
}

// WithCache enables or disables memoisation.
func WithCache(enabled bool) Option {
	return func(c *config) {
		c.CacheEnabled = enabled
	}
}

// WithExpiration sets how long a cached aggregation stays valid and how often
// expired entries are swept.
func WithExpiration(expiration, cleanup time.Duration) Option {
	return func(c *config) {
		c.Expiration = expiration
		c.CleanupInterval = cleanup
	}
}

// WithLogger sets the logger. A nil logger is replaced by a no-op one.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.Logger = logger
	}
}

func applyOptions(opts []Option) *config {
	cfg := &config{
		CacheEnabled:    true,
		Expiration:      time.Hour,
		CleanupInterval: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}
