package hubclient

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Remote is a window registered with the hub. Its name and relationships never
// change, so they are fetched once; liveness is asked every time.
type Remote struct {
	client *Client
	id     string

	mu   sync.Mutex
	info *models.WindowInfo
}

var _ window.Window = (*Remote)(nil)

// Window returns a handle on the hub window id. No request is made until the
// handle is used.
func (c *Client) Window(id string) *Remote {
	return &Remote{client: c, id: id}
}

func (c *Client) windowFromInfo(info models.WindowInfo) *Remote {
	return &Remote{client: c, id: info.ID, info: &info}
}

func (r *Remote) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.client.timeout)
}

// record returns the cached hub record, fetching it on first use
func (r *Remote) record() (models.WindowInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.info != nil {
		return *r.info, true
	}

	ctx, cancel := r.ctx()
	defer cancel()

	info, err := r.client.Info(ctx, r.id)
	if err != nil {
		r.client.logger.Debug("Window lookup failed", zap.String("window", r.id), zap.Error(err))
		return models.WindowInfo{}, false
	}
	r.info = &info
	return info, true
}

func (r *Remote) ID() string {
	return r.id
}

func (r *Remote) Name() string {
	info, _ := r.record()
	return info.Name
}

func (r *Remote) Opener() window.Window {
	info, ok := r.record()
	if !ok || info.OpenerID == "" {
		return nil
	}
	return r.client.Window(info.OpenerID)
}

// Parent returns the containing window, or nil for a top-level window
func (r *Remote) Parent() window.Window {
	info, ok := r.record()
	if !ok || info.ParentID == "" {
		return nil
	}
	return r.client.Window(info.ParentID)
}

func (r *Remote) Frame(name string) window.Window {
	ctx, cancel := r.ctx()
	defer cancel()

	info, err := r.client.FrameInfo(ctx, r.id, name)
	if err != nil {
		return nil
	}
	return r.client.windowFromInfo(info)
}

// Closed reports whether the hub marked the window closed or forgot it. A hub
// that cannot be reached says nothing about the window, so it counts as open.
func (r *Remote) Closed() bool {
	ctx, cancel := r.ctx()
	defer cancel()

	info, err := r.client.Info(ctx, r.id)
	switch {
	case err == nil:
		return info.Status == models.StatusClosed
	case errors.Is(err, ErrNotFound):
		return true
	default:
		r.client.logger.Warn("Liveness probe failed", zap.String("window", r.id), zap.Error(err))
		return false
	}
}

// Self is the hub window the current process runs as
type Self struct {
	*Remote

	unloadMu  sync.Mutex
	unloaders []func()
	unloaded  bool
}

var _ window.Local = (*Self)(nil)

// Self returns the local handle on window id, which must exist on the hub
func (c *Client) Self(ctx context.Context, id string) (*Self, error) {
	info, err := c.Info(ctx, id)
	if err != nil {
		return nil, err
	}
	if info.Status != models.StatusOpen {
		return nil, ErrGone
	}
	return &Self{Remote: c.windowFromInfo(info)}, nil
}

// Close closes this window on the hub and runs the unload hooks
func (s *Self) Close() error {
	ctx, cancel := s.ctx()
	defer cancel()

	err := s.client.Close(ctx, s.id)
	s.Unload()

	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *Self) Focus() error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Focus(ctx, s.id)
}

func (s *Self) ResizeTo(width, height int) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Resize(ctx, s.id, width, height)
}

func (s *Self) OnUnload(fn func()) {
	s.unloadMu.Lock()
	defer s.unloadMu.Unlock()
	s.unloaders = append(s.unloaders, fn)
}

// Unload runs the unload hooks once. It is called when the window goes away
// without Close, such as when the relay connection is lost.
func (s *Self) Unload() {
	s.unloadMu.Lock()
	if s.unloaded {
		s.unloadMu.Unlock()
		return
	}
	s.unloaded = true
	hooks := s.unloaders
	s.unloaders = nil
	s.unloadMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
