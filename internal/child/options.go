package child

import (
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/layout"
	"github.com/shehryarbajwa/framebridge/internal/transport"
	"github.com/shehryarbajwa/framebridge/internal/watch"
	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Handlers are the lifecycle callbacks a component author supplies. Any of them
// may be nil.
type Handlers struct {
	// OnEnter runs once the parent has answered the handshake
	OnEnter func(c *Child) error

	// OnClose runs at most once, whichever close path fires first
	OnClose func(reason models.CloseReason) error

	// OnProps runs after every notified prop update. Its errors go back to
	// whoever pushed the update.
	OnProps func(props map[string]any) error

	// OnError receives errors from the other handlers and from the handshake.
	// Without it those errors are returned to the caller.
	OnError func(err error) error
}

// Options configures a child component
type Options struct {
	Handlers

	// Tag is the component tag the window must have been created for
	Tag string

	// Name prefixes logged events; defaults to the tag
	Name string

	// DefaultProps are available before, and without, a handshake
	DefaultProps map[string]any

	// Standalone lets a page that was not created as a component run with
	// DefaultProps only
	Standalone bool

	// AutoResize reports document size changes to the parent
	AutoResize bool
}

// Deps are the collaborators a child talks through
type Deps struct {
	Self      window.Local
	Transport transport.Transport
	Registry  *Registry

	// Watcher defaults to a watch.Poller with the default interval
	Watcher watch.Watcher

	// Observer is required for AutoResize
	Observer layout.Observer

	Logger *zap.Logger
}
