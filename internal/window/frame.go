package window

import (
	"sync"

	"github.com/google/uuid"
)

// Frame is an in-memory browsing context. Frames form a tree through child frames
// and popups, mirroring how a browser links windows: a child frame sees its
// container as Parent, a popup sees its creator as Opener and itself as Parent.
type Frame struct {
	id   string
	name string

	mu     sync.RWMutex
	parent *Frame
	opener *Frame
	frames []*Frame
	popups []*Frame
	closed bool

	focused       bool
	width, height int
	contentWidth  int
	contentHeight int

	unload []func()
}

// NewTop creates a top-level window
func NewTop(name string) *Frame {
	return &Frame{
		id:   uuid.New().String(),
		name: name,
	}
}

// AppendFrame embeds a new named child frame
func (f *Frame) AppendFrame(name string) *Frame {
	child := NewTop(name)
	child.parent = f

	f.mu.Lock()
	f.frames = append(f.frames, child)
	f.mu.Unlock()

	return child
}

// OpenPopup opens a new named popup whose opener is f
func (f *Frame) OpenPopup(name string) *Frame {
	popup := NewTop(name)
	popup.opener = f

	f.mu.Lock()
	f.popups = append(f.popups, popup)
	f.mu.Unlock()

	return popup
}

func (f *Frame) ID() string {
	return f.id
}

func (f *Frame) Name() string {
	return f.name
}

func (f *Frame) Opener() Window {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.opener == nil {
		return nil
	}
	return f.opener
}

func (f *Frame) Parent() Window {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.parent == nil {
		return f
	}
	return f.parent
}

// Frame returns the first open child frame with the given name
func (f *Frame) Frame(name string) Window {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, child := range f.frames {
		if child.name == name && !child.Closed() {
			return child
		}
	}
	return nil
}

// Frames returns the open child frames in insertion order
func (f *Frame) Frames() []*Frame {
	f.mu.RLock()
	defer f.mu.RUnlock()

	l := make([]*Frame, 0, len(f.frames))
	for _, child := range f.frames {
		if !child.Closed() {
			l = append(l, child)
		}
	}
	return l
}

func (f *Frame) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.closed
}

// Close closes the window and every frame it contains. Popups it opened stay
// open, as they do in a browser.
func (f *Frame) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	frames := f.frames
	f.frames = nil
	hooks := f.unload
	f.unload = nil
	parent := f.parent
	f.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	for _, child := range frames {
		child.Close()
	}
	if parent != nil {
		parent.removeFrame(f)
	}

	return nil
}

func (f *Frame) removeFrame(child *Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, c := range f.frames {
		if c == child {
			f.frames = append(f.frames[:i], f.frames[i+1:]...)
			return
		}
	}
}

func (f *Frame) Focus() error {
	f.mu.Lock()
	f.focused = true
	f.mu.Unlock()
	return nil
}

// Focused reports whether Focus was called
func (f *Frame) Focused() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.focused
}

func (f *Frame) ResizeTo(width, height int) error {
	f.mu.Lock()
	f.width, f.height = width, height
	f.mu.Unlock()
	return nil
}

// Size returns the dimensions last set by ResizeTo
func (f *Frame) Size() (int, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.width, f.height
}

func (f *Frame) OnUnload(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.unload = append(f.unload, fn)
}

// SetContentSize sets the scroll size of the document loaded in the frame
func (f *Frame) SetContentSize(width, height int) {
	f.mu.Lock()
	f.contentWidth, f.contentHeight = width, height
	f.mu.Unlock()
}

// ContentSize returns the scroll size of the document loaded in the frame
func (f *Frame) ContentSize() (int, int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.contentWidth, f.contentHeight
}
