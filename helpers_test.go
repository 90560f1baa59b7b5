package dbpool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	errConnect  = errors.New("connection refused")
	errClose    = errors.New("broken pipe")
	errRollback = errors.New("server closed the connection unexpectedly")
)

// fakeConn records what the pool does with a connection.
type fakeConn struct {
	dbname string

	mu            sync.Mutex
	closed        bool
	ready         bool
	closeErr      error
	rollbackErr   error
	closeCalls    int
	rollbackCalls int
}

func newFakeConn(dbname string) *fakeConn {
	return &fakeConn{dbname: dbname, ready: true}
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

func (c *fakeConn) Rollback(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollbackCalls++
	if c.rollbackErr != nil {
		return c.rollbackErr
	}
	c.ready = true
	return nil
}

func (c *fakeConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	c.closed = true
	return c.closeErr
}

func (c *fakeConn) setClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) setReady(ready bool) {
	c.mu.Lock()
	c.ready = ready
	c.mu.Unlock()
}

func (c *fakeConn) closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

func (c *fakeConn) rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbackCalls
}

// fakeConnector hands out fakeConns and remembers every one it opened.
type fakeConnector struct {
	mu       sync.Mutex
	opened   map[string][]*fakeConn
	err      error
	closeErr map[string]error
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		opened:   make(map[string][]*fakeConn),
		closeErr: make(map[string]error),
	}
}

func (f *fakeConnector) connect(_ context.Context, dbname string) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	conn := newFakeConn(dbname)
	conn.closeErr = f.closeErr[dbname]
	f.opened[dbname] = append(f.opened[dbname], conn)
	return conn, nil
}

func (f *fakeConnector) conns(dbname string) []*fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeConn(nil), f.opened[dbname]...)
}

func (f *fakeConnector) last(dbname string) *fakeConn {
	conns := f.conns(dbname)
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

func newTestPool(t *testing.T, connector *fakeConnector, clock clockwork.Clock) *Pool {
	t.Helper()
	pool, err := New(connector.connect, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return pool
}

func newTestLimitedPool(t *testing.T, connector *fakeConnector, clock clockwork.Clock, maxConns int) *LimitedPool {
	t.Helper()
	pool, err := NewLimited(connector.connect, maxConns, WithClock(clock), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return pool
}

// waitTimeout waits for the waitgroup for the specified max timeout.
// Returns true if waiting timed out.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	c := make(chan struct{})

	go func() {
		defer close(c)
		wg.Wait()
	}()

	select {
	case <-c:
		return false // completed normally
	case <-time.After(timeout):
		return true // timed out
	}
}
