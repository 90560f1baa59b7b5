package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"dbpool/config"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	for _, name := range []string{"run", "check", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("dev"))
}

func TestNewConnectFunc(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		driver  string
		wantErr bool
	}{
		{"postgres", config.DriverPostgres, false},
		{"mysql", config.DriverMySQL, false},
		{"unknown driver", "oracle", true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			instance := config.Instance{
				Driver:   testCase.driver,
				Host:     "localhost",
				Port:     5432,
				Username: "datadog",
				Password: "secret",
			}
			connect, err := newConnectFunc(instance, zaptest.NewLogger(t))
			if testCase.wantErr {
				assert.Error(t, err)
				assert.Nil(t, connect)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, connect)
		})
	}
}

type otherConn struct{}

func (otherConn) IsClosed() bool                 { return false }
func (otherConn) Ready() bool                    { return true }
func (otherConn) Rollback(context.Context) error { return nil }
func (otherConn) Close(context.Context) error    { return nil }

func TestProbeRejectsUnknownConnection(t *testing.T) {
	t.Parallel()

	_, _, err := probe(context.Background(), otherConn{})
	assert.ErrorContains(t, err, "unsupported connection type")
}
