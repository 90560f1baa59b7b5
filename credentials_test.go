package dbpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsGetId(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		credentials Credentials
		addr        string
		id          string
	}{
		{"ipv4", Credentials{Host: "10.0.0.1", Port: 5432, Username: "datadog"}, "10.0.0.1:5432", "datadog@10.0.0.1:5432"},
		{"hostname", Credentials{Host: "memsql", Port: 3306, Username: "root", Password: "RootPass1"}, "memsql:3306", "root@memsql:3306"},
		{"ipv6", Credentials{Host: "::1", Port: 5432, Username: "datadog"}, "[::1]:5432", "datadog@[::1]:5432"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.addr, testCase.credentials.Addr())
			assert.Equal(t, testCase.id, testCase.credentials.GetId())
		})
	}
}
