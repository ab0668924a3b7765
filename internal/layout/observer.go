// Package layout observes changes to the size of a document.
package layout

import (
	"sync"
	"time"
)

// Sizer reports the current scroll size of a document
type Sizer interface {
	ContentSize() (width, height int)
}

// Observer calls fn whenever the observed size changes
type Observer interface {
	Observe(fn func(width, height int)) (stop func())
}

// Poller samples a Sizer on a fixed interval
type Poller struct {
	sizer    Sizer
	interval time.Duration
}

// NewPoller creates an observer for sizer. A zero interval samples every 100ms.
func NewPoller(sizer Sizer, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{sizer: sizer, interval: interval}
}

// Observe starts sampling. The size at the time of the call is the baseline; fn
// only runs on changes.
func (p *Poller) Observe(fn func(width, height int)) func() {
	lastWidth, lastHeight := p.sizer.ContentSize()

	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}

				width, height := p.sizer.ContentSize()
				if width == lastWidth && height == lastHeight {
					continue
				}
				lastWidth, lastHeight = width, height
				fn(width, height)
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
