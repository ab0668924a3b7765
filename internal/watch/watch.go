// Package watch detects when remote windows go away.
//
// No hosting mechanism offers a reliable "closed" event for another window, so
// liveness is probed. A Watcher calls onClose exactly once, the first time its
// Prober reports the window unreachable, and then stops probing.
package watch

import (
	"github.com/shehryarbajwa/framebridge/internal/window"
)

// State is the outcome of a single probe
type State int

const (
	Reachable State = iota
	Unreachable
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Prober checks whether a window is still there
type Prober interface {
	Probe() State
}

// ProberFunc adapts a function to Prober
type ProberFunc func() State

func (f ProberFunc) Probe() State {
	return f()
}

// WindowProber probes the window returned by get. get is called on every probe so
// that a frame destroyed and recreated under the same name is followed.
func WindowProber(get func() window.Window) Prober {
	return ProberFunc(func() State {
		w := get()
		if w == nil || w.Closed() {
			return Unreachable
		}
		return Reachable
	})
}

// Watcher runs probes and reports the first unreachable result
type Watcher interface {
	// Watch starts probing p. stop cancels the watch; it is safe to call more
	// than once and after onClose fired.
	Watch(p Prober, onClose func()) (stop func())
}
