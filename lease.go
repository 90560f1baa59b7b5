package dbpool

import "sync"

// Lease is a connection handed out by a LimitedPool. While at least one
// lease of a database is outstanding its connection is not evicted.
//
// The connection remains owned by the pool; Release does not close it.
type Lease struct {
	limited *LimitedPool
	dbname  string
	entry   *entry

	once sync.Once
}

// Conn returns the leased connection.
func (lease *Lease) Conn() Conn {
	return lease.entry.conn
}

// DBName returns the database the lease was acquired for.
func (lease *Lease) DBName() string {
	return lease.dbname
}

// Release gives the connection back to the pool and refreshes its last
// access time. Releasing more than once has no further effect, and so has
// releasing a connection which was pruned or replaced meanwhile.
func (lease *Lease) Release() {
	lease.once.Do(func() {
		pool := lease.limited.pool
		pool.mu.Lock()
		defer pool.mu.Unlock()

		e, ok := pool.conns[lease.dbname]
		if !ok || e != lease.entry {
			return
		}
		e.leases--
		pool.touchLocked(lease.dbname)
	})
}
