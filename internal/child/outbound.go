package child

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// liveParent returns the parent once the handshake completed
func (c *Child) liveParent() (window.Window, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rejected != nil {
		return nil, c.rejected
	}
	if c.phase.Before(models.PhaseLive) {
		return nil, ErrNotLive
	}
	if c.parent == nil {
		return nil, window.ErrNoParentContext
	}
	return c.parent, nil
}

// Resize resizes the child. A popup resizes itself, which hosts usually only
// allow from a user action; a frame asks the parent to resize it. Sizes reported
// before the handshake completes are held and sent on entering live. Once the
// handshake was rejected, Resize returns the rejection.
func (c *Child) Resize(ctx context.Context, width, height int) error {
	c.log("resize", zap.Int("width", width), zap.Int("height", height))

	c.mu.Lock()
	if c.rejected != nil {
		err := c.rejected
		c.mu.Unlock()
		return err
	}
	if c.phase == models.PhaseInitializing {
		c.pending = &models.ResizeRequest{Width: width, Height: height}
		c.mu.Unlock()
		return nil
	}
	popup := c.context == models.ContextPopup
	c.mu.Unlock()

	if popup {
		return c.self.ResizeTo(width, height)
	}

	parent, err := c.liveParent()
	if err != nil {
		return err
	}

	_, err = c.transport.Send(ctx, parent, models.MessageResize, models.ResizeRequest{Width: width, Height: height})
	return err
}

// Hide asks the parent to hide the child and any parent template
func (c *Child) Hide(ctx context.Context) error {
	parent, err := c.liveParent()
	if err != nil {
		return err
	}

	c.log("send_to_parent_" + models.MessageHide)
	_, err = c.transport.Send(ctx, parent, models.MessageHide, nil)
	return err
}

// Focus brings this window to the front. Must be done on a user action.
func (c *Child) Focus() error {
	c.log("focus")
	return c.self.Focus()
}

// Error sends err to the parent. Errors that carry a stack trace print it with %+v.
// It only needs a resolved parent, so handshake failures can be reported too.
func (c *Child) Error(ctx context.Context, err error) error {
	detail := fmt.Sprintf("%+v", err)
	c.log("error", zap.String("error", detail))

	parent := c.ParentWindow()
	if parent == nil {
		return window.ErrNoParentContext
	}

	_, serr := c.transport.Send(ctx, parent, models.MessageError, models.ErrorReport{Error: detail})
	return serr
}
