package udpflow

import "fmt"

// NetError represents a socket failure with additional context.
// Socket failures are fatal: they are surfaced immediately and never retried.
type NetError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *NetError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("udpflow %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("udpflow %s: %v", e.Op, e.Err)
}

func (e *NetError) Unwrap() error {
	return e.Err
}

// newNetError creates a new NetError
func newNetError(op, addr string, err error) *NetError {
	return &NetError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
