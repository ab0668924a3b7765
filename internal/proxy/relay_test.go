package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shehryarbajwa/framebridge/internal/ratelimit"
	"github.com/shehryarbajwa/framebridge/internal/session"
	"github.com/shehryarbajwa/framebridge/internal/transport"
	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

type hub struct {
	url      string
	sessions *session.Manager
	relay    *Server
}

func newHub(t *testing.T, limiter *ratelimit.Limiter) *hub {
	t.Helper()

	sessions := session.NewManager(session.Config{}, nil, nil)
	relay := NewServer(sessions, limiter, nil, nil)

	r := mux.NewRouter()
	r.HandleFunc("/v1/windows/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		relay.HandleConnection(w, r, mux.Vars(r)["id"])
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &hub{url: srv.URL, sessions: sessions, relay: relay}
}

func (h *hub) register(t *testing.T, name string) models.WindowInfo {
	t.Helper()
	info, err := h.sessions.Register(models.RegisterWindowRequest{Name: name})
	require.NoError(t, err)
	return info
}

func (h *hub) dial(t *testing.T, id string) *transport.Conn {
	t.Helper()

	conn, err := transport.Dial(context.Background(), h.url, id, transport.DialOptions{Timeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return h.relay.Connected(id) }, time.Second, time.Millisecond)
	return conn
}

func (h *hub) connect(t *testing.T, name string) (models.WindowInfo, *transport.Conn) {
	t.Helper()
	info := h.register(t, name)
	return info, h.dial(t, info.ID)
}

// ref addresses a window by id only
type ref string

func (r ref) ID() string                      { return string(r) }
func (r ref) Name() string                    { return "" }
func (r ref) Opener() window.Window           { return nil }
func (r ref) Parent() window.Window           { return nil }
func (r ref) Frame(name string) window.Window { return nil }
func (r ref) Closed() bool                    { return false }

func TestRelayRequestResponse(t *testing.T) {
	h := newHub(t, nil)
	parent, parentConn := h.connect(t, "parent")
	child, childConn := h.connect(t, "child")

	parentConn.Handle(models.MessageInit, func(ctx context.Context, msg transport.Message) (any, error) {
		assert.Equal(t, child.ID, msg.Source, "the hub stamps the source")
		return models.InitResponse{Context: models.ContextIframe, Props: map[string]any{"a": "b"}}, nil
	})

	raw, err := childConn.Send(context.Background(), ref(parent.ID), models.MessageInit, models.InitRequest{Tag: "x"})
	require.NoError(t, err)

	var resp models.InitResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	assert.Equal(t, models.ContextIframe, resp.Context)
	assert.Equal(t, "b", resp.Props["a"])
}

func TestRelayRemoteError(t *testing.T) {
	h := newHub(t, nil)
	parent, _ := h.connect(t, "parent")
	_, childConn := h.connect(t, "child")

	_, err := childConn.Send(context.Background(), ref(parent.ID), "unknown", nil)
	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
}

func TestRelayUnreachable(t *testing.T) {
	h := newHub(t, nil)
	offline := h.register(t, "offline")
	_, childConn := h.connect(t, "child")

	_, err := childConn.Send(context.Background(), ref(offline.ID), models.MessageInit, nil)
	assert.ErrorIs(t, err, transport.ErrUnreachable)

	_, err = childConn.Send(context.Background(), ref("missing"), models.MessageInit, nil)
	assert.ErrorIs(t, err, transport.ErrUnreachable)

	// notifications to nowhere are dropped silently
	assert.NoError(t, childConn.Notify(ref("missing"), models.MessageClose, nil))
}

func TestRelayNotify(t *testing.T) {
	h := newHub(t, nil)
	parent, parentConn := h.connect(t, "parent")
	_, childConn := h.connect(t, "child")

	received := make(chan models.CloseRequest, 1)
	parentConn.Handle(models.MessageClose, func(ctx context.Context, msg transport.Message) (any, error) {
		var req models.CloseRequest
		require.NoError(t, msg.Decode(&req))
		received <- req
		return nil, nil
	})

	require.NoError(t, childConn.Notify(ref(parent.ID), models.MessageClose, models.CloseRequest{Reason: models.CloseReasonUserClosed}))

	select {
	case req := <-received:
		assert.Equal(t, models.CloseReasonUserClosed, req.Reason)
	case <-time.After(time.Second):
		t.Fatal("notification not relayed")
	}
}

func TestDisconnectClosesWindow(t *testing.T) {
	h := newHub(t, nil)
	parent, parentConn := h.connect(t, "parent")

	info, err := h.sessions.Get(parent.ID)
	require.NoError(t, err)
	assert.True(t, info.Connected)

	require.NoError(t, parentConn.Close())

	require.Eventually(t, func() bool {
		info, err := h.sessions.Get(parent.ID)
		return err == nil && info.Status == models.StatusClosed
	}, time.Second, time.Millisecond)
	assert.False(t, h.relay.Connected(parent.ID))
}

func TestClosedWindowIsDisconnected(t *testing.T) {
	h := newHub(t, nil)
	parent, parentConn := h.connect(t, "parent")

	require.NoError(t, h.sessions.Close(parent.ID, session.CauseRequested))

	select {
	case <-parentConn.Done():
	case <-time.After(time.Second):
		t.Fatal("connection of a closed window stayed open")
	}
}

func TestConnectionRejected(t *testing.T) {
	h := newHub(t, nil)

	socketURL, err := transport.SocketURL(h.url, "missing")
	require.NoError(t, err)
	_, resp, err := websocket.DefaultDialer.Dial(socketURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	info, _ := h.connect(t, "page")
	socketURL, err = transport.SocketURL(h.url, info.ID)
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(socketURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	closed := h.register(t, "closed")
	require.NoError(t, h.sessions.Close(closed.ID, session.CauseRequested))
	socketURL, err = transport.SocketURL(h.url, closed.ID)
	require.NoError(t, err)
	_, resp, err = websocket.DefaultDialer.Dial(socketURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRelayRateLimit(t *testing.T) {
	h := newHub(t, ratelimit.NewLimiter(ratelimit.PerHour(1), 1))
	parent, parentConn := h.connect(t, "parent")
	_, childConn := h.connect(t, "child")

	parentConn.Handle("ping", func(ctx context.Context, msg transport.Message) (any, error) {
		return "pong", nil
	})

	_, err := childConn.Send(context.Background(), ref(parent.ID), "ping", nil)
	require.NoError(t, err)

	_, err = childConn.Send(context.Background(), ref(parent.ID), "ping", nil)
	var remote *transport.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, errRateLimited, remote.Message)
}

func TestClientCloseOnLostSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.Close()
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+srv.URL[len("http"):], nil)
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	core, logs := observer.New(zapcore.DebugLevel)
	c := &client{windowID: "w1", ws: ws}
	c.close(zap.New(core))

	entries := logs.FilterMessage("close frame not sent").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "w1", entries[0].ContextMap()["window"])
}
