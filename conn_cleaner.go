package dbpool

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const minCleanerInterval = time.Second

// StartCleaner starts a goroutine which prunes expired connections every
// interval until ctx is done or the pool is closed. Intervals below one
// second are raised to one second. The returned channel is closed when the
// goroutine exits.
func (pool *Pool) StartCleaner(ctx context.Context, interval time.Duration) <-chan struct{} {
	if interval < minCleanerInterval {
		interval = minCleanerInterval
	}
	done := make(chan struct{})
	ticker := pool.clock.NewTicker(interval)
	go pool.connectionCleaner(ctx, ticker.Chan(), ticker.Stop, done)
	return done
}

func (pool *Pool) connectionCleaner(ctx context.Context, tick <-chan time.Time, stop func(), done chan<- struct{}) {
	defer close(done)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		}

		if pool.isClosed() {
			return
		}
		if pruned := pool.Prune(); 0 < pruned {
			pool.logger.Debug("cleaner pruned DB connections",
				zap.Int("pruned", pruned),
				zap.Object("stats", pool.Stats()))
		}
	}
}

func (pool *Pool) isClosed() bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return pool.closed
}
