package child

import (
	"go.uber.org/zap"

	"github.com/shehryarbajwa/framebridge/internal/watch"
	"github.com/shehryarbajwa/framebridge/internal/window"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// watchForClose closes this child when the windows it depends on go away
func (c *Child) watchForClose(parent, component window.Window) {
	stop := c.watcher.Watch(watch.WindowProber(c.directContainer), func() {
		c.log("parent_window_closed")
		c.parentClosed()
	})
	c.addStop(stop)

	// A sibling owner is not reclaimed with our container, so it is watched on its own
	if component != nil && !window.Same(component, parent) {
		stop := c.watcher.Watch(watch.WindowProber(c.parentComponent), func() {
			c.log("parent_component_window_closed")
			if err := c.Close(models.CloseReasonParentCloseDetected); err != nil {
				c.logger.Warn("close after parent component closed", zap.Error(err))
			}
		})
		c.addStop(stop)
	}

	c.self.OnUnload(c.unloaded)
}

func (c *Child) directContainer() window.Window {
	w, err := c.resolver.DirectContainer()
	if err != nil {
		return nil
	}
	return w
}

func (c *Child) parentComponent() window.Window {
	w, err := c.resolver.ParentComponent()
	if err != nil {
		return nil
	}
	return w
}

// beginClose enters the closing phase. Only the first caller gets true.
func (c *Child) beginClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.phase.Before(models.PhaseClosing) {
		return false
	}
	c.phase = models.PhaseClosing
	return true
}

func (c *Child) fireOnClose(reason models.CloseReason) error {
	if c.opts.OnClose == nil {
		return nil
	}
	return c.invoke("onClose", report, func() error { return c.opts.OnClose(reason) })
}

// parentClosed handles the loss of the direct container. Nobody is left to
// notify; a popup is closed here because nothing else will reclaim it.
func (c *Child) parentClosed() {
	if !c.beginClose() {
		return
	}

	if err := c.fireOnClose(models.CloseReasonParentCloseDetected); err != nil {
		c.logger.Warn("close handler failed", zap.Error(err))
	}
	c.stopWatching()

	if c.Context() == models.ContextPopup {
		if err := c.Destroy(); err != nil {
			c.logger.Warn("failed to destroy popup", zap.Error(err))
		}
		return
	}
	c.setPhase(models.PhaseClosed)
}

// unloaded runs when this window itself goes away
func (c *Child) unloaded() {
	if !c.beginClose() {
		return
	}

	if err := c.fireOnClose(models.CloseReasonNone); err != nil {
		c.logger.Warn("close handler failed", zap.Error(err))
	}
	c.stopWatching()
	c.setPhase(models.PhaseClosed)
}

// Close closes the child and asks the parent to tear it down. It is idempotent:
// OnClose runs at most once. The CLOSE message is not awaited since this window
// may be gone before an answer could arrive.
func (c *Child) Close(reason models.CloseReason) error {
	if reason == models.CloseReasonNone {
		reason = models.CloseReasonChildCall
	}
	if !c.beginClose() {
		return nil
	}

	c.log("close_child", zap.String("reason", string(reason)))

	err := c.fireOnClose(reason)
	c.stopWatching()

	if parent := c.ParentWindow(); parent != nil {
		if nerr := c.transport.Notify(parent, models.MessageClose, models.CloseRequest{Reason: reason}); nerr != nil {
			c.logger.Debug("close notification not delivered", zap.Error(nerr))
		}
	}

	c.setPhase(models.PhaseClosed)
	return err
}

// UserClose closes the child on behalf of the user
func (c *Child) UserClose() error {
	return c.Close(models.CloseReasonUserClosed)
}

// Destroy closes this window locally without telling anyone. It is used when
// there is nobody left to tell, or when the parent asked for it.
func (c *Child) Destroy() error {
	c.log("destroy")

	err := c.self.Close()
	c.stopWatching()
	c.setPhase(models.PhaseClosed)

	return err
}
