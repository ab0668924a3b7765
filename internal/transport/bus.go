package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shehryarbajwa/framebridge/internal/window"
)

// Bus connects windows living in the same process
type Bus struct {
	endpoints sync.Map // windowID -> *Endpoint
	timeout   time.Duration
}

// NewBus creates an empty bus. A zero timeout uses DefaultTimeout.
func NewBus(timeout time.Duration) *Bus {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bus{timeout: timeout}
}

// Endpoint returns the transport for w, creating it on first use
func (b *Bus) Endpoint(w window.Window) *Endpoint {
	value, _ := b.endpoints.LoadOrStore(w.ID(), &Endpoint{bus: b, self: w})
	return value.(*Endpoint)
}

func (b *Bus) lookup(target window.Window) (*Endpoint, error) {
	if target == nil || target.Closed() {
		return nil, ErrUnreachable
	}

	value, ok := b.endpoints.Load(target.ID())
	if !ok {
		return nil, ErrUnreachable
	}
	return value.(*Endpoint), nil
}

// Endpoint is one window's view of a Bus
type Endpoint struct {
	bus      *Bus
	self     window.Window
	handlers handlerSet
}

var _ Transport = (*Endpoint)(nil)

func (e *Endpoint) Handle(name string, h Handler) {
	e.handlers.set(name, h)
}

func (e *Endpoint) Send(ctx context.Context, target window.Window, name string, payload any) (json.RawMessage, error) {
	dst, err := e.bus.lookup(target)
	if err != nil {
		return nil, err
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDefaultTimeout(ctx, e.bus.timeout)
	defer cancel()

	type result struct {
		data json.RawMessage
		err  error
	}
	done := make(chan result, 1)

	msg := Message{ID: uuid.New().String(), Name: name, Source: e.self.ID(), Payload: data}
	go func() {
		value, err := dst.handlers.dispatch(ctx, msg)
		done <- result{data: value, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, &RemoteError{Name: name, Message: r.err.Error()}
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, name, ctx.Err())
	}
}

func (e *Endpoint) Notify(target window.Window, name string, payload any) error {
	dst, err := e.bus.lookup(target)
	if err != nil {
		return err
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	msg := Message{ID: uuid.New().String(), Name: name, Source: e.self.ID(), Payload: data}
	go dst.handlers.dispatch(context.Background(), msg)

	return nil
}
