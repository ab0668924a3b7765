package child

import "errors"

var (
	ErrDuplicateAttachment = errors.New("can not attach multiple components to the same window")
	ErrHandshakeRejected   = errors.New("parent rejected init handshake")
	ErrTagMismatch         = errors.New("window was created for a different component")
	ErrAlreadyInitialized  = errors.New("child already initialized")
	ErrNotLive             = errors.New("child has not completed its handshake")
)
