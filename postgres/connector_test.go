package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dbpool"
)

func TestConnString(t *testing.T) {
	t.Parallel()

	credentials := dbpool.Credentials{Host: "10.0.0.1", Port: 5433, Username: "datadog", Password: "p@ss word"}
	connector, err := NewConnector(ConnString(credentials, "disable"), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", connector.config.Host)
	assert.Equal(t, uint16(5433), connector.config.Port)
	assert.Equal(t, "datadog", connector.config.User)
	assert.Equal(t, "p@ss word", connector.config.Password)
	assert.Equal(t, "dbpool", connector.config.RuntimeParams["application_name"])
	assert.Equal(t, 5*time.Second, connector.config.ConnectTimeout)
	assert.Nil(t, connector.config.TLSConfig)
}

func TestNewConnectorInvalidConnString(t *testing.T) {
	t.Parallel()

	_, err := NewConnector("postgres://datadog@10.0.0.1:notaport/", nil)
	assert.Error(t, err)
}

// testDSN returns the server used by integration tests, skipping the test
// when none is configured.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("DBPOOL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DBPOOL_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestConnectAndRollback(t *testing.T) {
	dsn := testDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	connector, err := NewConnector(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	pool, err := dbpool.NewLimited(connector.Connect, 2)
	require.NoError(t, err)
	defer pool.CloseAll()

	dbname := connector.config.Database
	if dbname == "" {
		dbname = "postgres"
	}

	err = pool.WithConn(ctx, dbname, time.Minute, func(conn dbpool.Conn) error {
		pgConn := conn.(*Conn)
		var current string
		if err := pgConn.Raw().QueryRow(ctx, "SELECT current_database()").Scan(&current); err != nil {
			return err
		}
		assert.Equal(t, dbname, current)

		// Leave a failed transaction behind.
		_, err := pgConn.Raw().Exec(ctx, "BEGIN")
		require.NoError(t, err)
		_, err = pgConn.Raw().Exec(ctx, "SELECT 1/0")
		assert.Error(t, err)
		assert.False(t, conn.Ready())
		return nil
	})
	require.NoError(t, err)

	// The pool hands the session back clean.
	err = pool.WithConn(ctx, dbname, time.Minute, func(conn dbpool.Conn) error {
		assert.True(t, conn.Ready())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pool.Stats().Opened)
}
