package dbpool

import "errors"

var (
	ErrNilConnectFunc  = errors.New("dbpool: connect function is nil")
	ErrInvalidMaxConns = errors.New("dbpool: max connections must be positive")
	ErrPoolClosed      = errors.New("dbpool: pool closed")
	ErrRegistryClosed  = errors.New("dbpool: registry closed")
)
