package stripevec

import (
	"time"

	"go.uber.org/zap"
)

const defaultStripeCount = 8

type config struct {
	logger      *zap.Logger
	stripeCount int
}

func newConfig() config {
	return config{logger: zap.NewNop(), stripeCount: defaultStripeCount}
}

// Option configures a Container at construction time.
type Option func(*config)

// WithLogger attaches a structured logger for lifecycle diagnostics
// (construction, structural-write begin/end, panics recovered on the way
// out of a write session). Defaults to a no-op logger; nothing on the hot
// read/write-cursor path ever logs.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStripeCount overrides the default stripe count S (8). S is fixed for
// the container's lifetime once constructed.
func WithStripeCount(n int) Option {
	return func(c *config) { c.stripeCount = n }
}

// WithWriterIntentTimeout is reserved for a future bounded-wait variant of
// structural-write acquisition. Writer-intent timeout is explicitly not
// modelled today — acquisition is unconditional — so this option is
// accepted but currently has no effect; it exists so a caller can opt in
// ahead of time without an API break later.
func WithWriterIntentTimeout(_ time.Duration) Option {
	return func(*config) {}
}
