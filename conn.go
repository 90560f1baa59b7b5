package dbpool

import "context"

// Conn is the capability set the pool needs from a database connection.
// Driver packages (postgres, mysql) adapt their native connections to it.
type Conn interface {
	// IsClosed reports whether the connection can no longer be used.
	IsClosed() bool
	// Ready reports whether the connection is idle, i.e. not inside an open
	// or aborted transaction.
	Ready() bool
	// Rollback aborts whatever transaction is left open on the connection.
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// ConnectFunc opens a new connection to the named database.
// A failure is returned to the caller of Acquire as is.
type ConnectFunc func(ctx context.Context, dbname string) (Conn, error)
