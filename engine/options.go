package engine

import (
	"log/slog"
	"math/rand/v2"
)

// ============================================================================
// ENGINE OPTIONS: Functional options for Execute()
// ============================================================================

// MaxResultColumns is the default width cap applied to a finished result.
const MaxResultColumns = 50

// Option configures engine behavior via functional options pattern.
type Option func(*config)

type config struct {
	MaxColumns int  // width cap for the final table (≤ 0 disables)
	Coerce     bool // run type coercion before the first operation
	Logger     *slog.Logger
	Rand       *rand.Rand // source for unseeded sample operations
}

// WithMaxColumns overrides the result width cap. n ≤ 0 disables the cap.
func WithMaxColumns(n int) Option {
	return func(c *config) {
		c.MaxColumns = n
	}
}

// WithoutCoercion skips the type-coercion pass, for tables that are already typed.
func WithoutCoercion() Option {
	return func(c *config) {
		c.Coerce = false
	}
}

// WithLogger sets the structured logger used for the run.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithRand sets the random source for sample operations without a seed.
func WithRand(r *rand.Rand) Option {
	return func(c *config) {
		c.Rand = r
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		MaxColumns: MaxResultColumns,
		Coerce:     true,
		Logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
