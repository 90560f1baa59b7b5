package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dbpool"
	"dbpool/config"
	"dbpool/mysql"
	"dbpool/postgres"
)

// reader runs one collection cycle over every configured database, the way
// a periodic metadata job uses the pool: lease, query, release, then prune.
type reader struct {
	registry  *dbpool.Registry
	instances []config.Instance
	ttl       time.Duration
	logger    *zap.Logger
}

func (r reader) ReadAll(ctx context.Context) {
	for _, instance := range r.instances {
		credentials := instance.Credentials()
		pool, ok := r.registry.Get(credentials)
		if !ok {
			r.logger.Warn("no pool registered for instance", zap.String("id", credentials.GetId()))
			continue
		}

		for _, dbname := range instance.AllDatabases() {
			if err := r.Read(ctx, pool, dbname); err != nil {
				r.logger.Error("failed to read database",
					zap.String("id", credentials.GetId()),
					zap.String("dbname", dbname),
					zap.Error(err))
			}
		}
		pool.Prune()
	}
}

func (r reader) Read(ctx context.Context, pool *dbpool.LimitedPool, dbname string) error {
	return pool.WithConn(ctx, dbname, r.ttl, func(conn dbpool.Conn) error {
		current, size, err := probe(ctx, conn)
		if err != nil {
			return err
		}
		r.logger.Info("read database",
			zap.String("dbname", current),
			zap.Int64("size_bytes", size))
		return nil
	})
}

// probe returns the name and size of the database conn is connected to.
func probe(ctx context.Context, conn dbpool.Conn) (string, int64, error) {
	var (
		name string
		size int64
	)
	switch c := conn.(type) {
	case *postgres.Conn:
		err := c.Raw().QueryRow(ctx,
			"SELECT current_database(), pg_database_size(current_database())").Scan(&name, &size)
		return name, size, err
	case *mysql.Conn:
		err := c.Raw().QueryRowContext(ctx,
			"SELECT DATABASE(), COALESCE(SUM(data_length + index_length), 0) FROM information_schema.tables WHERE table_schema = DATABASE()").Scan(&name, &size)
		return name, size, err
	default:
		return "", 0, fmt.Errorf("unsupported connection type %T", conn)
	}
}
