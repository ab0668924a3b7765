// Package proxy relays envelopes between windows connected to the hub.
package proxy

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/metrics"
	"github.com/shehryarbajwa/framebridge/internal/ratelimit"
	"github.com/shehryarbajwa/framebridge/internal/session"
	"github.com/shehryarbajwa/framebridge/internal/transport"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

const errRateLimited = "rate limit exceeded"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server routes envelopes between the relay connections of registered windows.
// A window whose connection drops is closed.
type Server struct {
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	metrics  *metrics.Metrics
	logger   *zap.Logger

	conns sync.Map // windowID -> *client
}

type client struct {
	windowID string
	ws       *websocket.Conn
	writeMu  sync.Mutex
}

func (c *client) write(env models.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

func (c *client) close(logger *zap.Logger) {
	c.writeMu.Lock()
	err := c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "window closed"))
	c.writeMu.Unlock()
	if err != nil {
		logger.Debug("close frame not sent", zap.String("window", c.windowID), zap.Error(err))
	}
	c.ws.Close()
}

// NewServer creates a relay. limiter may be nil to disable rate limiting.
func NewServer(sessions *session.Manager, limiter *ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) *Server {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		sessions: sessions,
		limiter:  limiter,
		metrics:  m,
		logger:   logger,
	}
	sessions.OnClose(s.windowClosed)

	return s
}

// HandleConnection upgrades the request and relays for windowID until either
// side goes away
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request, windowID string) {
	info, err := s.sessions.Get(windowID)
	if err != nil {
		http.Error(w, "Window not found", http.StatusNotFound)
		return
	}
	if info.Status != models.StatusOpen {
		http.Error(w, "Window is closed", http.StatusBadRequest)
		return
	}
	if _, connected := s.conns.Load(windowID); connected {
		http.Error(w, "Window is already connected", http.StatusConflict)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", zap.String("window", windowID), zap.Error(err))
		return
	}

	c := &client{windowID: windowID, ws: ws}
	if _, loaded := s.conns.LoadOrStore(windowID, c); loaded {
		c.close(s.logger)
		return
	}
	defer s.disconnect(c)

	if err := s.sessions.SetConnected(windowID, true); err != nil {
		// closed while upgrading
		return
	}
	s.metrics.RelayConnections.Inc()
	defer s.metrics.RelayConnections.Dec()

	s.logger.Info("Window connected", zap.String("window", windowID))

	for {
		var env models.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Relay read failed", zap.String("window", windowID), zap.Error(err))
			}
			return
		}

		env.Source = windowID
		s.route(c, env)
	}
}

func (s *Server) route(from *client, env models.Envelope) {
	if s.limiter != nil && env.Type != models.EnvelopeResponse && !s.limiter.Allow(from.windowID) {
		s.metrics.RateLimited.WithLabelValues("relay").Inc()
		s.reject(from, env, errRateLimited, "rate_limited")
		return
	}

	target, ok := s.conns.Load(env.Target)
	if !ok {
		s.reject(from, env, transport.ErrUnreachable.Error(), "unreachable")
		return
	}

	if err := target.(*client).write(env); err != nil {
		s.logger.Debug("Relay write failed", zap.String("target", env.Target), zap.Error(err))
		s.reject(from, env, transport.ErrUnreachable.Error(), "write_failed")
		return
	}

	s.metrics.RelayMessages.WithLabelValues(string(env.Type)).Inc()
}

// reject answers undeliverable requests with an error; other envelopes are dropped
func (s *Server) reject(from *client, env models.Envelope, reason, label string) {
	s.metrics.RelayErrors.WithLabelValues(label).Inc()

	if env.Type != models.EnvelopeRequest {
		s.logger.Debug("Dropping envelope",
			zap.String("type", string(env.Type)),
			zap.String("name", env.Name),
			zap.String("reason", reason))
		return
	}

	err := from.write(models.Envelope{
		ID:     env.ID,
		Type:   models.EnvelopeResponse,
		Name:   env.Name,
		Source: env.Target,
		Target: from.windowID,
		Error:  reason,
	})
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		s.logger.Debug("Failed to reject envelope", zap.String("window", from.windowID), zap.Error(err))
	}
}

// disconnect forgets c and closes its window
func (s *Server) disconnect(c *client) {
	s.conns.CompareAndDelete(c.windowID, c)
	c.ws.Close()

	if err := s.sessions.Close(c.windowID, session.CauseDisconnected); err != nil {
		s.logger.Debug("Disconnected window already gone", zap.String("window", c.windowID), zap.Error(err))
	}
	s.logger.Info("Window disconnected", zap.String("window", c.windowID))
}

// windowClosed drops the relay connection of a window closed through the API
func (s *Server) windowClosed(info models.WindowInfo) {
	if s.limiter != nil {
		s.limiter.Forget(info.ID)
	}

	if value, ok := s.conns.Load(info.ID); ok {
		value.(*client).close(s.logger)
	}
}

// Connected reports whether windowID holds a relay connection
func (s *Server) Connected(windowID string) bool {
	_, ok := s.conns.Load(windowID)
	return ok
}
