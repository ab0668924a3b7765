// Package component binds a component definition to the child runtime.
package component

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/child"
	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Component is a validated Spec
type Component struct {
	spec     Spec
	attached *child.Registry
	logger   *zap.Logger

	mu   sync.Mutex
	last *child.Child
}

// New validates spec and creates a component that records its attachments in
// attached. A nil registry gets a private one.
func New(spec Spec, attached *child.Registry, logger *zap.Logger) (*Component, error) {
	spec, err := spec.normalize()
	if err != nil {
		return nil, err
	}

	if attached == nil {
		attached = child.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Component{
		spec:     spec,
		attached: attached,
		logger:   logger.With(zap.String("component", spec.Tag)),
	}
	c.log("construct")

	return c, nil
}

// Spec returns the normalized definition
func (c *Component) Spec() Spec {
	s := c.spec
	s.Contexts = maps.Clone(c.spec.Contexts)
	s.DefaultProps = maps.Clone(c.spec.DefaultProps)
	return s
}

// Tag returns the component tag
func (c *Component) Tag() string {
	return c.spec.Tag
}

// Allows reports whether the component may render in ct
func (c *Component) Allows(ct models.ContextType) bool {
	return c.spec.Contexts[ct]
}

// Child creates the child side of this component in deps.Self. Component
// settings override the matching fields of opts; opts.DefaultProps are merged
// over the spec's.
func (c *Component) Child(deps child.Deps, opts child.Options) (*child.Child, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.spec.Singleton && c.last != nil && c.last.Phase() != models.PhaseClosed {
		return nil, fmt.Errorf("[%s] singleton %w", c.spec.Tag, child.ErrDuplicateAttachment)
	}

	props := maps.Clone(c.spec.DefaultProps)
	if props == nil {
		props = make(map[string]any, len(opts.DefaultProps))
	}
	maps.Copy(props, opts.DefaultProps)

	opts.Tag = c.spec.Tag
	opts.Name = c.spec.Name
	opts.DefaultProps = props
	opts.AutoResize = opts.AutoResize || c.spec.AutoResize

	deps.Registry = c.attached
	if deps.Logger == nil {
		deps.Logger = c.logger
	}

	ch, err := child.New(deps, opts)
	if err != nil {
		c.log("attach_failed", zap.Error(err))
		return nil, err
	}
	c.last = ch

	return ch, nil
}

// Attach creates the child and runs its handshake. The child is returned even
// when Init fails so the caller can still report the error to the parent. A
// negotiated context its Spec does not allow fails with ErrContextNotAllowed
// after the child reported it and closed.
func (c *Component) Attach(ctx context.Context, deps child.Deps, opts child.Options) (*child.Child, error) {
	ch, err := c.Child(deps, opts)
	if err != nil {
		return nil, err
	}

	if err := ch.Init(ctx); err != nil {
		return ch, err
	}

	// The parent picks the context; a component that forbids it tells the
	// parent why and goes away.
	if ct := ch.Context(); ct != "" && !c.Allows(ct) {
		err := fmt.Errorf("[%s] %w: %s", c.spec.Tag, ErrContextNotAllowed, ct)
		c.log("context_not_allowed", zap.String("context", string(ct)))

		if rerr := ch.Error(ctx, err); rerr != nil {
			c.logger.Debug("failed to report context to parent", zap.Error(rerr))
		}
		if cerr := ch.Close(models.CloseReasonChildCall); cerr != nil {
			c.logger.Debug("failed to close child", zap.Error(cerr))
		}
		return ch, err
	}
	return ch, nil
}

// IsHosted reports whether w was created by a parent for this component
func (c *Component) IsHosted(w window.Window) bool {
	token, ok := window.ParseName(w.Name())
	return ok && token.Tag == c.spec.Tag
}

// BuildWindowName encodes token into a window name for this component
func (c *Component) BuildWindowName(token models.WindowToken) (string, error) {
	return window.BuildName(c.spec.Tag, token)
}

func (c *Component) log(event string, fields ...zap.Field) {
	c.logger.Info(fmt.Sprintf("xc_%s_%s", c.spec.Name, event), fields...)
}
