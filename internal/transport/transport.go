// Package transport carries named messages between windows.
//
// Send and Notify are deliberately separate operations: Send waits for the
// target's answer, Notify hands the message off and returns. A window that is
// tearing itself down uses Notify because it may never see a response.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shehryarbajwa/framebridge/internal/window"
)

// DefaultTimeout bounds a Send whose context carries no deadline
const DefaultTimeout = 10 * time.Second

// Message is an inbound message as seen by a Handler
type Message struct {
	ID      string
	Name    string
	Source  string
	Payload json.RawMessage
}

// Decode unmarshals the payload into v
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// Handler answers an inbound message. The returned value is marshaled as the
// response payload; it is discarded for notifications.
type Handler func(ctx context.Context, msg Message) (any, error)

// Transport is an asynchronous, possibly lossy channel between windows
type Transport interface {
	// Send delivers a request to target and waits for its response
	Send(ctx context.Context, target window.Window, name string, payload any) (json.RawMessage, error)

	// Notify delivers a message to target without waiting for anything
	Notify(target window.Window, name string, payload any) error

	// Handle registers the handler for inbound messages with the given name
	Handle(name string, h Handler)
}

func marshalPayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// handlerSet is the inbound side shared by every transport
type handlerSet struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func (s *handlerSet) set(name string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[string]Handler)
	}
	s.handlers[name] = h
}

func (s *handlerSet) dispatch(ctx context.Context, msg Message) (result json.RawMessage, err error) {
	s.mu.RLock()
	h, ok := s.handlers[msg.Name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, msg.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", msg.Name, r)
		}
	}()

	value, err := h(ctx, msg)
	if err != nil {
		return nil, err
	}
	return marshalPayload(value)
}
