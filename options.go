package dbpool

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 5 * time.Second

type options struct {
	logger       *zap.Logger
	clock        clockwork.Clock
	closeTimeout time.Duration
}

// Option configures a Pool or a LimitedPool.
type Option func(*options)

// WithLogger sets the logger used to report connection lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the wall clock used for deadlines and last access times.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithCloseTimeout bounds every single connection close.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.closeTimeout = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		clock:        clockwork.NewRealClock(),
		closeTimeout: defaultCloseTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
