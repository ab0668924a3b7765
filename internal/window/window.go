package window

// Window is a live reference to another browsing context. References are never
// serialized; they are re-derived from the current context's relationships.
type Window interface {
	// ID identifies the context for as long as it lives
	ID() string

	// Name is the context's window name, which may carry a WindowToken
	Name() string

	// Opener returns the window that opened this one as a popup, or nil
	Opener() Window

	// Parent returns the containing window. Top-level windows return themselves or nil.
	Parent() Window

	// Frame returns the named child frame, or nil
	Frame(name string) Window

	// Closed reports whether the context is gone
	Closed() bool
}

// Local is the window the current code runs in
type Local interface {
	Window

	Close() error
	Focus() error

	// ResizeTo resizes the window itself. Browsers only honour this for popups,
	// and usually only from a user action.
	ResizeTo(width, height int) error

	// OnUnload registers fn to run when this window goes away
	OnUnload(fn func())
}

// Same reports whether a and b refer to the same context
func Same(a, b Window) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	return a.ID() != "" && a.ID() == b.ID()
}
