package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"dbpool"
)

// Connector opens sessions to the databases of one MySQL compatible server.
type Connector struct {
	config *mysql.Config
	logger *zap.Logger
}

// NewConnector creates a connector from a driver configuration. DBName is
// replaced by the database passed to Connect.
func NewConnector(config *mysql.Config, logger *zap.Logger) *Connector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		config: config.Clone(),
		logger: logger.Named("mysql"),
	}
}

// NewConnectorFromDSN parses a go-sql-driver DSN.
func NewConnectorFromDSN(dsn string, logger *zap.Logger) (*Connector, error) {
	config, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	return NewConnector(config, logger), nil
}

// ConfigFromCredentials returns the driver configuration for credentials.
func ConfigFromCredentials(credentials dbpool.Credentials) *mysql.Config {
	config := mysql.NewConfig()
	config.User = credentials.Username
	config.Passwd = credentials.Password
	config.Net = "tcp"
	config.Addr = credentials.Addr()
	config.InterpolateParams = true
	config.ParseTime = true
	config.Timeout = 5 * time.Second
	return config
}

// Connect opens a dedicated session to dbname. It satisfies
// dbpool.ConnectFunc.
func (c *Connector) Connect(ctx context.Context, dbname string) (dbpool.Conn, error) {
	config := c.config.Clone()
	config.DBName = dbname

	connector, err := mysql.NewConnector(config)
	if err != nil {
		return nil, err
	}

	// The handle backs exactly one session, the pool does the pooling.
	conn, err := open(ctx, connector)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("connected", zap.String("addr", config.Addr), zap.String("dbname", dbname))
	return conn, nil
}
