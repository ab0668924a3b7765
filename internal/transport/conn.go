package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// DialOptions configures a hub connection
type DialOptions struct {
	Timeout time.Duration
	Header  http.Header
	Logger  *zap.Logger
}

// Conn is a window's websocket connection to the hub. Envelopes addressed to
// other windows are relayed by the hub; responses are matched to requests by id.
type Conn struct {
	self    string
	ws      *websocket.Conn
	timeout time.Duration
	logger  *zap.Logger

	writeMu  sync.Mutex
	pending  sync.Map // envelope id -> chan models.Envelope
	handlers handlerSet

	done      chan struct{}
	closeOnce sync.Once
}

var _ Transport = (*Conn)(nil)

// SocketURL returns the websocket endpoint of windowID on the hub at hubURL
func SocketURL(hubURL, windowID string) (string, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return "", fmt.Errorf("invalid hub url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws", "":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported hub url scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + "/v1/windows/" + url.PathEscape(windowID) + "/ws"
	return u.String(), nil
}

// Dial connects windowID to the hub
func Dial(ctx context.Context, hubURL, windowID string, opts DialOptions) (*Conn, error) {
	socketURL, err := SocketURL(hubURL, windowID)
	if err != nil {
		return nil, err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to hub: %w", err)
	}

	return newConn(ws, windowID, opts), nil
}

func newConn(ws *websocket.Conn, windowID string, opts DialOptions) *Conn {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	c := &Conn{
		self:    windowID,
		ws:      ws,
		timeout: opts.Timeout,
		logger:  opts.Logger.With(zap.String("window", windowID)),
		done:    make(chan struct{}),
	}

	go c.readLoop()

	return c
}

func (c *Conn) Handle(name string, h Handler) {
	c.handlers.set(name, h)
}

func (c *Conn) Send(ctx context.Context, target window.Window, name string, payload any) (json.RawMessage, error) {
	if target == nil {
		return nil, ErrUnreachable
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDefaultTimeout(ctx, c.timeout)
	defer cancel()

	env := models.Envelope{
		ID:      uuid.New().String(),
		Type:    models.EnvelopeRequest,
		Name:    name,
		Source:  c.self,
		Target:  target.ID(),
		Payload: data,
	}

	reply := make(chan models.Envelope, 1)
	c.pending.Store(env.ID, reply)
	defer c.pending.Delete(env.ID)

	if err := c.write(env); err != nil {
		return nil, err
	}

	select {
	case resp := <-reply:
		if resp.Error != "" {
			if resp.Error == ErrUnreachable.Error() {
				return nil, fmt.Errorf("%w: %s", ErrUnreachable, target.ID())
			}
			return nil, &RemoteError{Name: name, Message: resp.Error}
		}
		return resp.Payload, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrTimeout, name, ctx.Err())
	}
}

func (c *Conn) Notify(target window.Window, name string, payload any) error {
	if target == nil {
		return ErrUnreachable
	}

	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}

	return c.write(models.Envelope{
		ID:      uuid.New().String(),
		Type:    models.EnvelopeNotify,
		Name:    name,
		Source:  c.self,
		Target:  target.ID(),
		Payload: data,
	})
}

// Done is closed once the connection to the hub is lost
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close disconnects from the hub. The hub treats the window as closed.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	if err != nil {
		c.logger.Debug("close frame not sent", zap.Error(err))
	}

	c.shutdown()
	return c.ws.Close()
}

func (c *Conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) write(env models.Envelope) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(env); err != nil {
		return fmt.Errorf("failed to write %s: %w", env.Name, err)
	}
	return nil
}

func (c *Conn) readLoop() {
	defer c.shutdown()

	for {
		var env models.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("hub connection lost", zap.Error(err))
			}
			return
		}

		switch env.Type {
		case models.EnvelopeResponse:
			if value, ok := c.pending.Load(env.ID); ok {
				select {
				case value.(chan models.Envelope) <- env:
				default:
					// a response was already accepted for this request
				}
			}
		case models.EnvelopeRequest, models.EnvelopeNotify:
			go c.serve(env)
		default:
			c.logger.Debug("ignoring envelope", zap.String("type", string(env.Type)))
		}
	}
}

func (c *Conn) serve(env models.Envelope) {
	msg := Message{ID: env.ID, Name: env.Name, Source: env.Source, Payload: env.Payload}
	result, err := c.handlers.dispatch(context.Background(), msg)

	if env.Type == models.EnvelopeNotify {
		if err != nil {
			c.logger.Warn("notification handler failed", zap.String("name", env.Name), zap.Error(err))
		}
		return
	}

	resp := models.Envelope{
		ID:      env.ID,
		Type:    models.EnvelopeResponse,
		Name:    env.Name,
		Source:  c.self,
		Target:  env.Source,
		Payload: result,
	}
	if err != nil {
		resp.Error = err.Error()
	}

	if err := c.write(resp); err != nil {
		c.logger.Warn("failed to answer request", zap.String("name", env.Name), zap.Error(err))
	}
}
