package dbpool

import "go.uber.org/zap"

// evictLRULocked closes the least recently accessed connection that is not
// leased. It returns false if every connection is leased.
func (limited *LimitedPool) evictLRULocked() bool {
	pool := limited.pool

	// Keys are ordered from oldest to newest access.
	for _, key := range pool.recency.Keys() {
		dbname, ok := key.(string)
		if !ok {
			panic("dbpool: unexpected key type in recency index")
		}

		e, ok := pool.conns[dbname]
		if !ok || e.inUse() {
			continue
		}

		pool.stats.Evicted++
		pool.logger.Debug("evicting least recently used DB connection",
			zap.String("dbname", dbname),
			zap.Time("last_access", e.lastAccess))
		pool.terminateLocked(dbname)
		return true
	}
	return false
}

// touchLocked marks dbname as the most recently accessed database.
func (pool *Pool) touchLocked(dbname string) {
	if e, ok := pool.conns[dbname]; ok {
		e.lastAccess = pool.clock.Now()
		pool.recency.Add(dbname, nil)
	}
}
