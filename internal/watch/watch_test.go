package watch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/framebridge/internal/window"
)

func TestWindowProber(t *testing.T) {
	page := window.NewTop("page")
	frame := page.AppendFrame("a")

	var current window.Window = frame
	prober := WindowProber(func() window.Window { return current })

	assert.Equal(t, Reachable, prober.Probe())

	require.NoError(t, frame.Close())
	assert.Equal(t, Unreachable, prober.Probe())

	// recreated under the same name: the getter follows the live reference
	current = page.AppendFrame("a")
	assert.Equal(t, Reachable, prober.Probe())

	current = nil
	assert.Equal(t, Unreachable, prober.Probe())
}

func TestManualFiresOnce(t *testing.T) {
	m := NewManual()
	state := Reachable
	var fired int

	m.Watch(ProberFunc(func() State { return state }), func() { fired++ })

	m.Tick()
	assert.Equal(t, 0, fired)
	assert.Equal(t, 1, m.Active())

	state = Unreachable
	m.Tick()
	m.Tick()
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, m.Active())
}

func TestManualStop(t *testing.T) {
	m := NewManual()
	var fired int

	stop := m.Watch(ProberFunc(func() State { return Unreachable }), func() { fired++ })
	stop()
	stop()

	m.Tick()
	assert.Equal(t, 0, fired)
}

func TestPollerFiresOnce(t *testing.T) {
	p := NewPoller(5*time.Millisecond, nil)

	var reachable atomic.Bool
	reachable.Store(true)
	var fired atomic.Int32

	closed := make(chan struct{})
	p.Watch(ProberFunc(func() State {
		if reachable.Load() {
			return Reachable
		}
		return Unreachable
	}), func() {
		if fired.Add(1) == 1 {
			close(closed)
		}
	})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())

	reachable.Store(false)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("onClose not called")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestPollerStop(t *testing.T) {
	p := NewPoller(5*time.Millisecond, nil)
	var fired atomic.Int32

	stop := p.Watch(ProberFunc(func() State { return Unreachable }), func() { fired.Add(1) })
	stop()
	stop()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reachable", Reachable.String())
	assert.Equal(t, "unreachable", Unreachable.String())
	assert.Equal(t, "unknown", State(7).String())
}
