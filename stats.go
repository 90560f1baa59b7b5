package dbpool

import "go.uber.org/zap/zapcore"

// Stats contains connection lifecycle counters of a pool.
// Counters only grow until ResetStats is called.
type Stats struct {
	Opened       int64 // The number of connections established by the connect function.
	Pruned       int64 // The number of connections removed because their deadline passed.
	Evicted      int64 // The number of connections removed to stay under the connection limit.
	Closed       int64 // The number of connections closed without error.
	ClosedFailed int64 // The number of connections whose close returned an error.
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Stats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("opened", s.Opened)
	enc.AddInt64("pruned", s.Pruned)
	enc.AddInt64("evicted", s.Evicted)
	enc.AddInt64("closed", s.Closed)
	enc.AddInt64("closed_failed", s.ClosedFailed)
	return nil
}

// Stats returns a snapshot of the pool counters.
func (pool *Pool) Stats() Stats {
	pool.mu.Lock()
	defer pool.mu.Unlock()
	return pool.stats
}

// ResetStats sets every counter back to zero.
func (pool *Pool) ResetStats() {
	pool.mu.Lock()
	pool.stats = Stats{}
	pool.mu.Unlock()
}
