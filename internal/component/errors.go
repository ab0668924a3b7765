package component

import "errors"

var (
	// ErrInvalidSpec is returned for component definitions that can never render
	ErrInvalidSpec = errors.New("invalid component spec")

	ErrContextNotAllowed = errors.New("parent rendered component in a context it does not allow")
)
