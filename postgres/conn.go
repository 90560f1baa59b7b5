// Package postgres adapts pgx connections to the dbpool connection
// capability set.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// txStatusIdle is the ReadyForQuery status of a session outside any
// transaction.
const txStatusIdle = 'I'

// Conn wraps a *pgx.Conn for use in a dbpool pool.
type Conn struct {
	conn *pgx.Conn
}

// NewConn wraps conn.
func NewConn(conn *pgx.Conn) *Conn {
	return &Conn{conn: conn}
}

// Raw returns the underlying pgx connection.
func (c *Conn) Raw() *pgx.Conn {
	return c.conn
}

func (c *Conn) IsClosed() bool {
	return c.conn.IsClosed()
}

// Ready reports whether the session is idle. A session left inside a
// transaction, failed or not, is not ready.
func (c *Conn) Ready() bool {
	return c.conn.PgConn().TxStatus() == txStatusIdle
}

func (c *Conn) Rollback(ctx context.Context) error {
	_, err := c.conn.Exec(ctx, "ROLLBACK")
	return err
}

func (c *Conn) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}
