// Package child runs a component inside the frame or popup the parent created
// for it.
//
// A Child resolves its parent windows, performs the INIT handshake, then keeps
// the parent informed (resize, hide, error, close) and accepts prop updates
// until it closes. Phases only move forward:
//
//	constructed -> initializing -> live -> closing -> closed
package child

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/layout"
	"github.com/shehryarbajwa/framebridge/internal/transport"
	"github.com/shehryarbajwa/framebridge/internal/watch"
	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Child is the lifecycle record of one attached component
type Child struct {
	opts      Options
	self      window.Local
	resolver  *window.Resolver
	transport transport.Transport
	watcher   watch.Watcher
	observer  layout.Observer
	logger    *zap.Logger

	mu        sync.Mutex
	phase     models.Phase
	context   models.ContextType
	props     map[string]any
	parent    window.Window
	component window.Window
	pending   *models.ResizeRequest
	rejected  error
	stops     []func()
}

// New creates a child for deps.Self. Attaching twice to the same window fails
// with ErrDuplicateAttachment and leaves the first child untouched.
func New(deps Deps, opts Options) (*Child, error) {
	if deps.Self == nil {
		return nil, errors.New("child requires a window")
	}
	if deps.Transport == nil {
		return nil, errors.New("child requires a transport")
	}
	if deps.Registry == nil {
		return nil, errors.New("child requires an attachment registry")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Watcher == nil {
		deps.Watcher = watch.NewPoller(watch.DefaultInterval, deps.Logger)
	}
	if opts.Name == "" {
		opts.Name = strings.ReplaceAll(opts.Tag, "-", "_")
	}

	if !deps.Registry.TryRegister(deps.Self.ID()) {
		return nil, fmt.Errorf("[%s] %w", opts.Tag, ErrDuplicateAttachment)
	}

	c := &Child{
		opts:      opts,
		self:      deps.Self,
		resolver:  window.NewResolver(deps.Self),
		transport: deps.Transport,
		watcher:   deps.Watcher,
		observer:  deps.Observer,
		logger:    deps.Logger,
		phase:     models.PhaseConstructed,
		props:     make(map[string]any),
	}

	c.log("construct_child")

	// Defaults are seeded silently so code reading props behaves the same
	// whether or not a handshake ever happens.
	c.SetProps(opts.DefaultProps, false)

	return c, nil
}

// Init resolves the parent windows and performs the INIT handshake.
//
// Handshake failures are routed to OnError; Init returns them only when OnError
// is unset or fails itself. Resolution failures are returned directly.
func (c *Child) Init(ctx context.Context) error {
	c.log("init_child")

	// Not created by a parent at all, e.g. reached through a redirect
	if !c.resolver.IsHosted() && c.opts.Standalone {
		c.log("child_standalone")
		return nil
	}

	parent, err := c.resolver.DirectContainer()
	if err != nil {
		if c.opts.Standalone {
			c.log("child_standalone_no_parent")
			return nil
		}
		return fmt.Errorf("[%s] %w", c.opts.Tag, err)
	}

	token, ok := c.resolver.Token()
	if !ok {
		return fmt.Errorf("[%s] %w", c.opts.Tag, window.ErrNotHostedContext)
	}
	if c.opts.Tag != "" && token.Tag != c.opts.Tag {
		return fmt.Errorf("[%s] %w: parent is %s", c.opts.Tag, ErrTagMismatch, token.Tag)
	}

	component, err := c.resolver.ParentComponent()
	if err != nil {
		return fmt.Errorf("[%s] %w", c.opts.Tag, err)
	}

	c.mu.Lock()
	if c.phase != models.PhaseConstructed {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.phase = models.PhaseInitializing
	c.parent = parent
	c.component = component
	c.mu.Unlock()

	c.watchForClose(parent, component)
	c.exportHandlers()

	if c.opts.AutoResize {
		c.watchForResize()
	}

	return c.handshake(ctx, parent)
}

func (c *Child) handshake(ctx context.Context, parent window.Window) error {
	c.log("send_to_parent_" + models.MessageInit)

	raw, err := c.transport.Send(ctx, parent, models.MessageInit, models.InitRequest{
		Tag:     c.opts.Tag,
		Exports: models.ExportMessages,
	})
	if err != nil {
		return c.reject(fmt.Errorf("%w: %w", ErrHandshakeRejected, err))
	}

	var resp models.InitResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &resp); err != nil {
			return c.reject(fmt.Errorf("%w: invalid response: %w", ErrHandshakeRejected, err))
		}
	}

	c.mu.Lock()
	if c.phase != models.PhaseInitializing {
		phase := c.phase
		c.mu.Unlock()
		c.log("handshake_response_discarded", zap.String("phase", string(phase)))
		return nil
	}
	c.phase = models.PhaseLive
	c.context = resp.Context
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	c.log("enter", zap.String("context", string(resp.Context)))

	if err := c.SetProps(resp.Props, true); err != nil {
		if rerr := c.reportError(err); rerr != nil {
			return rerr
		}
	}

	if pending != nil {
		if err := c.Resize(ctx, pending.Width, pending.Height); err != nil {
			c.logger.Warn("failed to flush resize", zap.Error(err))
		}
	}

	if c.opts.OnEnter == nil {
		return nil
	}
	return c.invoke("onEnter", report, func() error { return c.opts.OnEnter(c) })
}

// reject records a failed handshake. The child never goes live after this:
// buffered and later resizes fail with err, while the close watchers stay
// active so the child still follows its parent.
func (c *Child) reject(err error) error {
	c.mu.Lock()
	if c.phase == models.PhaseInitializing {
		c.rejected = err
		c.pending = nil
	}
	c.mu.Unlock()

	c.log("handshake_rejected", zap.Error(err))
	return c.reportError(err)
}

// exportHandlers registers the operations the parent may invoke on this child
func (c *Child) exportHandlers() {
	c.transport.Handle(models.MessageProps, func(ctx context.Context, msg transport.Message) (any, error) {
		var props map[string]any
		if err := msg.Decode(&props); err != nil {
			return nil, fmt.Errorf("invalid props: %w", err)
		}
		return nil, c.SetProps(props, true)
	})

	c.transport.Handle(models.MessageChildClose, func(ctx context.Context, msg transport.Message) (any, error) {
		return nil, c.Destroy()
	})
}

func (c *Child) watchForResize() {
	if c.observer == nil {
		c.logger.Warn("auto resize requested without a size observer")
		return
	}

	stop := c.observer.Observe(func(width, height int) {
		if err := c.Resize(context.Background(), width, height); err != nil {
			c.logger.Warn("auto resize failed", zap.Error(err))
		}
	})
	c.addStop(stop)
}

// SetProps merges update into the current props, later keys winning. With notify
// set, OnProps runs and its error is returned. Safe in every phase.
func (c *Child) SetProps(update map[string]any, notify bool) error {
	c.mu.Lock()
	maps.Copy(c.props, update)
	c.mu.Unlock()

	if !notify || c.opts.OnProps == nil {
		return nil
	}

	props := c.Props()
	return c.invoke("onProps", propagate, func() error { return c.opts.OnProps(props) })
}

// Props returns a copy of the current props
func (c *Child) Props() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.props)
}

// Phase returns the current lifecycle phase
func (c *Child) Phase() models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Context returns the rendering context negotiated in the handshake
func (c *Child) Context() models.ContextType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.context
}

// ParentWindow returns the direct container once Init resolved it
func (c *Child) ParentWindow() window.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parent
}

// ParentComponentWindow returns the logical owner once Init resolved it
func (c *Child) ParentComponentWindow() window.Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.component
}

// Token returns the WindowToken this window was created with
func (c *Child) Token() (models.WindowToken, bool) {
	return c.resolver.Token()
}

// setPhase moves forward to p; earlier phases are ignored
func (c *Child) setPhase(p models.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase.Before(p) {
		c.phase = p
	}
}

func (c *Child) addStop(stop func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops = append(c.stops, stop)
}

func (c *Child) stopWatching() {
	c.mu.Lock()
	stops := c.stops
	c.stops = nil
	c.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

func (c *Child) log(event string, fields ...zap.Field) {
	c.logger.Info(fmt.Sprintf("xc_%s_%s", c.opts.Name, event), fields...)
}
