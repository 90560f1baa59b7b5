// Package mysql adapts database/sql connections opened with
// github.com/go-sql-driver/mysql (MySQL, MemSQL/SingleStore) to the dbpool
// connection capability set.
package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
)

// Conn is a single dedicated session. Transactions must be started with
// BeginTx so the pool can tell whether one was left open.
type Conn struct {
	db   *sql.DB
	conn *sql.Conn

	mu     sync.Mutex // protects following fields
	tx     *Tx
	closed bool
}

// open dedicates a fresh handle of connector to a single session.
func open(ctx context.Context, connector driver.Connector) (*Conn, error) {
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Conn{db: db, conn: conn}, nil
}

// Raw returns the underlying session.
func (c *Conn) Raw() *sql.Conn {
	return c.conn
}

// Tx is a transaction of a Conn. Finishing it with Commit or Rollback
// makes the session ready again.
type Tx struct {
	*sql.Tx
	conn *Conn
}

func (tx *Tx) Commit() error {
	defer tx.conn.finish(tx)
	return tx.Tx.Commit()
}

func (tx *Tx) Rollback() error {
	defer tx.conn.finish(tx)
	return tx.Tx.Rollback()
}

// BeginTx starts a transaction on the session.
func (c *Conn) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	sqlTx, err := c.conn.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	tx := &Tx{Tx: sqlTx, conn: c}
	c.mu.Lock()
	c.tx = tx
	c.mu.Unlock()
	return tx, nil
}

func (c *Conn) finish(tx *Tx) {
	c.mu.Lock()
	if c.tx == tx {
		c.tx = nil
	}
	c.mu.Unlock()
}

// IsClosed reports whether the session was closed or the driver marked it
// invalid after a network error. An invalid session is released together
// with its handle before IsClosed returns.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return true
	}

	err := c.conn.Raw(func(driverConn interface{}) error {
		if v, ok := driverConn.(driver.Validator); ok && !v.IsValid() {
			return driver.ErrBadConn
		}
		return nil
	})
	if err == nil {
		return false
	}

	// The session is gone, the close only frees the handle.
	_ = c.Close(context.Background())
	return true
}

// Ready reports whether no transaction begun with BeginTx is pending.
func (c *Conn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx == nil
}

// Rollback rolls back the transaction left by the previous user, if any.
func (c *Conn) Rollback(context.Context) error {
	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()

	if tx == nil {
		return nil
	}
	if err := tx.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Close ends the session and releases the handle it was opened from.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()

	var errs []error
	if tx != nil {
		if err := tx.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
