package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"dbpool"
)

// Connector opens connections to the databases of one PostgreSQL server.
type Connector struct {
	config *pgx.ConnConfig
	logger *zap.Logger
}

// NewConnector parses connString. The database named in it, if any, is
// replaced by the one passed to Connect.
func NewConnector(connString string, logger *zap.Logger) (*Connector, error) {
	config, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		config: config,
		logger: logger.Named("postgres"),
	}, nil
}

// Connect opens a connection to dbname. It satisfies dbpool.ConnectFunc.
func (c *Connector) Connect(ctx context.Context, dbname string) (dbpool.Conn, error) {
	config := c.config.Copy()
	config.Database = dbname

	conn, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("connected",
		zap.String("host", config.Host),
		zap.Uint16("port", config.Port),
		zap.String("dbname", dbname))
	return NewConn(conn), nil
}

// ConnString builds a connection URL for credentials without a database.
func ConnString(credentials dbpool.Credentials, sslMode string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(credentials.Username, credentials.Password),
		Host:   credentials.Addr(),
		Path:   "/",
	}
	query := url.Values{}
	if sslMode != "" {
		query.Set("sslmode", sslMode)
	}
	query.Set("application_name", "dbpool")
	query.Set("connect_timeout", strconv.Itoa(5))
	u.RawQuery = query.Encode()
	return u.String()
}
