package window

import (
	"sync"

	"github.com/shehryarbajwa/framebridge/pkg/models"
)

// Resolver derives the relationships of a window from its container tree and the
// WindowToken in its name. Every answer is computed once and cached; the container
// tree is assumed stable for the life of the window.
//
// Two relationships exist. The direct container physically holds or opened this
// window. The parent component logically owns it. They differ when one component
// renders another on behalf of a third window: the token then carries the sibling
// flag and the name of the real owner, which is looked up among named frames.
type Resolver struct {
	self Local

	tokenOnce sync.Once
	token     models.WindowToken
	hosted    bool

	containerOnce sync.Once
	container     Window
	containerErr  error

	componentOnce sync.Once
	component     Window
	componentErr  error
}

// NewResolver creates a resolver for the given window
func NewResolver(self Local) *Resolver {
	return &Resolver{self: self}
}

// Self returns the window this resolver was created for
func (r *Resolver) Self() Local {
	return r.self
}

// Token returns the decoded WindowToken, or ok=false if this window was not
// created as a component instance
func (r *Resolver) Token() (models.WindowToken, bool) {
	r.tokenOnce.Do(func() {
		r.token, r.hosted = ParseName(r.self.Name())
	})
	return r.token, r.hosted
}

// IsHosted reports whether a well-formed WindowToken is present
func (r *Resolver) IsHosted() bool {
	_, ok := r.Token()
	return ok
}

// DirectContainer returns the window that opened or contains this one
func (r *Resolver) DirectContainer() (Window, error) {
	r.containerOnce.Do(func() {
		r.container, r.containerErr = r.resolveContainer()
	})
	return r.container, r.containerErr
}

func (r *Resolver) resolveContainer() (Window, error) {
	var container Window

	if opener := r.self.Opener(); opener != nil {
		container = opener
	} else if parent := r.self.Parent(); parent != nil && !Same(parent, r.self) {
		container = parent
	} else {
		return nil, ErrNoParentContext
	}

	token, ok := r.Token()
	if !ok {
		return container, nil
	}

	grand := container.Parent()
	if grand == nil || Same(grand, container) {
		return container, nil
	}

	// Rendered by a sibling: the frame we live in is itself the named parent, so
	// the real container sits one level up.
	if token.Sibling && Same(grand.Frame(token.Parent), container) {
		return grand, nil
	}

	return container, nil
}

// ParentComponent returns the window that logically owns this component. This
// is the direct container unless the token marks a sibling relationship and the
// container exposes a frame with the parent's name.
func (r *Resolver) ParentComponent() (Window, error) {
	r.componentOnce.Do(func() {
		r.component, r.componentErr = r.resolveComponent()
	})
	return r.component, r.componentErr
}

func (r *Resolver) resolveComponent() (Window, error) {
	token, ok := r.Token()
	if !ok {
		return nil, ErrNotHostedContext
	}

	container, err := r.DirectContainer()
	if err != nil {
		return nil, err
	}

	if token.Sibling && token.Parent != "" {
		if frame := container.Frame(token.Parent); frame != nil {
			return frame, nil
		}
	}

	return container, nil
}
