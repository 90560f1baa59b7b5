package dbpool

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LimitedPool is a Pool with a limit on the number of kept connections.
// Before opening a connection that would exceed maxConns it evicts the least
// recently used connection which is not leased.
//
// The limit is a soft one: when every kept connection is leased nothing can
// be evicted and the pool grows past maxConns rather than blocking or
// failing the caller.
type LimitedPool struct {
	pool     *Pool
	maxConns int
}

// NewLimited creates a pool keeping at most maxConns idle connections.
func NewLimited(connect ConnectFunc, maxConns int, opts ...Option) (*LimitedPool, error) {
	if maxConns <= 0 {
		return nil, ErrInvalidMaxConns
	}
	pool, err := New(connect, opts...)
	if err != nil {
		return nil, err
	}
	return &LimitedPool{pool: pool, maxConns: maxConns}, nil
}

// Acquire leases the connection kept for dbname, evicting least recently
// used connections first if the pool is full. The lease pins the
// connection against eviction until it is released; pruning still applies.
func (limited *LimitedPool) Acquire(ctx context.Context, dbname string, ttl time.Duration) (*Lease, error) {
	limited.pool.Prune()

	limited.pool.mu.Lock()
	defer limited.pool.mu.Unlock()

	if _, ok := limited.pool.conns[dbname]; !ok {
		for limited.maxConns <= len(limited.pool.conns) {
			if !limited.evictLRULocked() {
				limited.pool.logger.Debug("every DB connection is in use, exceeding limit",
					zap.Int("max_connections", limited.maxConns),
					zap.Int("connections", len(limited.pool.conns)))
				break
			}
		}
	}

	e, err := limited.pool.acquireLocked(ctx, dbname, ttl)
	if err != nil {
		return nil, err
	}
	e.leases++
	return &Lease{limited: limited, dbname: dbname, entry: e}, nil
}

// WithConn runs fn with a leased connection of dbname and releases the
// lease when fn returns.
func (limited *LimitedPool) WithConn(ctx context.Context, dbname string, ttl time.Duration, fn func(Conn) error) error {
	lease, err := limited.Acquire(ctx, dbname, ttl)
	if err != nil {
		return err
	}
	defer lease.Release()
	return fn(lease.Conn())
}

// MaxConns returns the connection limit.
func (limited *LimitedPool) MaxConns() int {
	return limited.maxConns
}

// Prune closes every connection whose deadline has passed, leased or not.
func (limited *LimitedPool) Prune() int {
	return limited.pool.Prune()
}

// CloseAll closes every connection and stops the pool from handing out new
// ones. It reports whether every close succeeded.
func (limited *LimitedPool) CloseAll() bool {
	return limited.pool.CloseAll()
}

// Len returns the number of kept connections.
func (limited *LimitedPool) Len() int {
	return limited.pool.Len()
}

// Stats returns a snapshot of the pool counters.
func (limited *LimitedPool) Stats() Stats {
	return limited.pool.Stats()
}

// ResetStats sets every counter back to zero.
func (limited *LimitedPool) ResetStats() {
	limited.pool.ResetStats()
}

// StartCleaner prunes the pool every interval, see Pool.StartCleaner.
func (limited *LimitedPool) StartCleaner(ctx context.Context, interval time.Duration) <-chan struct{} {
	return limited.pool.StartCleaner(ctx, interval)
}
