package dbpool

import (
	"context"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/jonboulle/clockwork"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// entry is the pool's record of the single connection kept for a database.
type entry struct {
	conn       Conn
	deadline   time.Time // eligible for pruning once passed
	lastAccess time.Time
	leases     int // outstanding leases, see LimitedPool
}

func (e *entry) inUse() bool {
	return 0 < e.leases
}

// Pool keeps at most one connection per logical database and closes
// connections which were not acquired again before their TTL ran out.
//
// Traditional pools hold many connections to a single database. Pool does
// the opposite: one connection for each of many databases, reused as much
// as possible. An instance with hundreds of databases still carries a
// connection overhead, which Prune keeps in check.
//
// Pruning has no visibility into what callers do with a connection, so a
// connection acquired with a 1s TTL that runs a 5s query can be closed
// mid-query.
//
// It's safe for concurrent use by multiple goroutines. A single lock guards
// the map and is held while a new connection is established, which
// serializes connection setup across all databases of the pool.
type Pool struct {
	connect      ConnectFunc
	logger       *zap.Logger
	clock        clockwork.Clock
	closeTimeout time.Duration

	mu      deadlock.Mutex // protects following fields
	conns   map[string]*entry
	recency *simplelru.LRU // database names, least recently accessed first
	stats   Stats
	closed  bool
}

// New creates a pool which opens connections with connect.
func New(connect ConnectFunc, opts ...Option) (*Pool, error) {
	if connect == nil {
		return nil, ErrNilConnectFunc
	}
	o := newOptions(opts)

	// Entries leave the index only through terminateLocked, never by size.
	recency, err := simplelru.NewLRU(math.MaxInt32, nil)
	if err != nil {
		return nil, err
	}

	return &Pool{
		connect:      connect,
		logger:       o.logger.Named("dbpool"),
		clock:        o.clock,
		closeTimeout: o.closeTimeout,
		conns:        make(map[string]*entry),
		recency:      recency,
	}, nil
}

// Acquire returns the connection kept for dbname, opening a new one if there
// is none or the kept one is closed. Expired connections are pruned first.
//
// A connection left in a transaction by a previous caller is rolled back
// before it is returned. The connection stays owned by the pool: it is
// closed once ttl passes without another Acquire of dbname.
func (pool *Pool) Acquire(ctx context.Context, dbname string, ttl time.Duration) (Conn, error) {
	pool.Prune()

	pool.mu.Lock()
	defer pool.mu.Unlock()

	e, err := pool.acquireLocked(ctx, dbname, ttl)
	if err != nil {
		return nil, err
	}
	return e.conn, nil
}

func (pool *Pool) acquireLocked(ctx context.Context, dbname string, ttl time.Duration) (*entry, error) {
	if pool.closed {
		return nil, ErrPoolClosed
	}

	e, ok := pool.conns[dbname]
	if ok && e.conn.IsClosed() {
		// Nothing to close, the connection is already gone.
		pool.removeLocked(dbname)
		ok = false
	}

	if !ok {
		conn, err := pool.connect(ctx, dbname)
		if err != nil {
			pool.logger.Debug("failed to open DB connection", zap.String("dbname", dbname), zap.Error(err))
			return nil, err
		}
		pool.stats.Opened++
		pool.logger.Debug("opened DB connection", zap.String("dbname", dbname))

		e = &entry{conn: conn}
		pool.conns[dbname] = e
	}

	if !e.conn.Ready() {
		pool.logger.Warn("rolling back unhealthy DB connection", zap.String("dbname", dbname))
		if err := e.conn.Rollback(ctx); err != nil {
			pool.terminateLocked(dbname)
			return nil, err
		}
	}

	now := pool.clock.Now()
	e.deadline = now.Add(ttl)
	e.lastAccess = now
	pool.recency.Add(dbname, nil)
	return e, nil
}

// Prune closes every connection whose deadline has passed and returns how
// many were removed. It should be called periodically, see StartCleaner.
func (pool *Pool) Prune() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	now := pool.clock.Now()
	pruned := 0
	for dbname, e := range pool.conns {
		if e.deadline.Before(now) {
			pool.stats.Pruned++
			pruned++
			pool.logger.Debug("pruning expired DB connection",
				zap.String("dbname", dbname),
				zap.Time("deadline", e.deadline))
			pool.terminateLocked(dbname)
		}
	}
	return pruned
}

// CloseAll closes every connection regardless of its deadline and stops the
// pool from handing out new ones. It reports whether every close succeeded.
// Calling it again is harmless.
func (pool *Pool) CloseAll() bool {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	pool.closed = true
	success := true
	for dbname := range pool.conns {
		if !pool.terminateLocked(dbname) {
			success = false
		}
	}
	return success
}

// Len returns the number of kept connections.
func (pool *Pool) Len() int {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return len(pool.conns)
}

// terminateLocked removes the entry of dbname and closes its connection.
// A failed close is counted and logged but the entry is gone either way.
func (pool *Pool) terminateLocked(dbname string) bool {
	e, ok := pool.conns[dbname]
	if !ok {
		return true
	}
	pool.removeLocked(dbname)

	ctx, cancel := context.WithTimeout(context.Background(), pool.closeTimeout)
	defer cancel()

	if err := e.conn.Close(ctx); err != nil {
		pool.stats.ClosedFailed++
		pool.logger.Error("failed to close DB connection", zap.String("dbname", dbname), zap.Error(err))
		return false
	}
	pool.stats.Closed++
	return true
}

func (pool *Pool) removeLocked(dbname string) {
	delete(pool.conns, dbname)
	pool.recency.Remove(dbname)
}
