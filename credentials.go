package dbpool

import (
	"net"
	"strconv"
)

// Credentials identify a monitored database server. Every database of the
// server is served by the same pool.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Addr returns host:port of the server.
func (cr *Credentials) Addr() string {
	return net.JoinHostPort(cr.Host, strconv.Itoa(cr.Port))
}

// GetId returns the key a Registry stores the server's pool under.
func (cr *Credentials) GetId() string {
	return cr.Username + "@" + cr.Addr()
}
