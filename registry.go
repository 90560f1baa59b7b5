package dbpool

import (
	"sync"

	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/zap"
)

// Registry holds one LimitedPool per monitored server.
type Registry struct {
	pools  cmap.ConcurrentMap // *LimitedPool by Credentials.GetId()
	logger *zap.Logger

	mu     sync.RWMutex // protects closed
	closed bool
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		pools:  cmap.New(),
		logger: logger.Named("registry"),
	}
}

// GetOrCreate returns the pool registered for credentials, creating it with
// newPool if there is none.
func (registry *Registry) GetOrCreate(credentials Credentials, newPool func() (*LimitedPool, error)) (*LimitedPool, error) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if registry.closed {
		return nil, ErrRegistryClosed
	}

	id := credentials.GetId()
	if tmp, ok := registry.pools.Get(id); ok {
		return tmp.(*LimitedPool), nil
	}

	pool, err := newPool()
	if err != nil {
		return nil, err
	}
	if !registry.pools.SetIfAbsent(id, pool) {
		// Lost the race, the fresh pool holds no connection yet.
		pool.CloseAll()
		tmp, _ := registry.pools.Get(id)
		return tmp.(*LimitedPool), nil
	}
	registry.logger.Info("registered pool",
		zap.String("id", id),
		zap.Int("max_connections", pool.MaxConns()))
	return pool, nil
}

// Get returns the pool registered for credentials.
func (registry *Registry) Get(credentials Credentials) (*LimitedPool, bool) {
	tmp, ok := registry.pools.Get(credentials.GetId())
	if !ok {
		return nil, false
	}
	return tmp.(*LimitedPool), true
}

// Remove unregisters the pool of credentials and closes its connections.
// It reports whether every close succeeded.
func (registry *Registry) Remove(credentials Credentials) bool {
	tmp, ok := registry.pools.Pop(credentials.GetId())
	if !ok {
		return true
	}
	return tmp.(*LimitedPool).CloseAll()
}

// Each calls fn for every registered pool.
func (registry *Registry) Each(fn func(id string, pool *LimitedPool)) {
	for tuple := range registry.pools.IterBuffered() {
		fn(tuple.Key, tuple.Val.(*LimitedPool))
	}
}

// Len returns the number of registered pools.
func (registry *Registry) Len() int {
	return registry.pools.Count()
}

// CloseAll closes every registered pool and refuses new registrations.
// It reports whether every connection was closed without error.
func (registry *Registry) CloseAll() bool {
	registry.mu.Lock()
	registry.closed = true
	registry.mu.Unlock()

	success := true
	registry.Each(func(id string, pool *LimitedPool) {
		if !pool.CloseAll() {
			success = false
		}
		registry.logger.Info("closed pool", zap.String("id", id), zap.Object("stats", pool.Stats()))
	})
	return success
}
