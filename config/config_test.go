package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
max_connections: 2
idle_connection_timeout: 1500
prune_interval: 30s
log:
  level: debug
instances:
  - host: 10.0.0.1
    username: datadog
    password: secret
    databases: [orders, postgres, users]
  - driver: mysql
    host: memsql
    username: root
    dbname: hellomemsql
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxConnections)
	assert.Equal(t, 1500*time.Millisecond, cfg.IdleTTL())
	assert.Equal(t, 30*time.Second, cfg.PruneInterval)
	assert.Equal(t, 10*time.Second, cfg.CollectionInterval)
	assert.Equal(t, 5*time.Second, cfg.CloseTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
	assert.False(t, cfg.Metrics.Enabled)

	require.Len(t, cfg.Instances, 2)
	pg := cfg.Instances[0]
	assert.Equal(t, DriverPostgres, pg.Driver)
	assert.Equal(t, 5432, pg.Port)
	assert.Equal(t, []string{"postgres", "orders", "users"}, pg.AllDatabases())
	credentials := pg.Credentials()
	assert.Equal(t, "datadog@10.0.0.1:5432", credentials.GetId())

	my := cfg.Instances[1]
	assert.Equal(t, 3306, my.Port)
	assert.Equal(t, []string{"hellomemsql"}, my.AllDatabases())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DBPOOL_MAX_CONNECTIONS", "7")
	t.Setenv("DBPOOL_LOG_LEVEL", "warn")

	path := writeConfig(t, `
max_connections: 2
instances:
  - host: 10.0.0.1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxConnections)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"no instances", "max_connections: 2\n"},
		{"zero max connections", "max_connections: 0\ninstances:\n  - host: a\n"},
		{"negative ttl", "idle_connection_timeout: -1\ninstances:\n  - host: a\n"},
		{"missing host", "instances:\n  - username: datadog\n"},
		{"unknown driver", "instances:\n  - host: a\n    driver: oracle\n"},
		{"mysql without database", "instances:\n  - host: a\n    driver: mysql\n"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, testCase.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
