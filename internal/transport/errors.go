package transport

import (
	"errors"
	"fmt"
)

var (
	ErrUnreachable = errors.New("target window unreachable")
	ErrTimeout     = errors.New("no response from target window")
	ErrNoHandler   = errors.New("no handler for message")
	ErrClosed      = errors.New("transport closed")
)

// RemoteError is an error returned by the handler on the other side
type RemoteError struct {
	Name    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error [%s]: %s", e.Name, e.Message)
}
