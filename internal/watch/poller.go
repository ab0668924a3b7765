package watch

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is short enough for a responsive teardown and long enough not to
// keep the process busy
const DefaultInterval = 500 * time.Millisecond

// Poller is a Watcher that probes on a fixed interval
type Poller struct {
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller creates a polling watcher. A zero interval uses DefaultInterval.
func NewPoller(interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Poller{
		interval: interval,
		logger:   logger,
	}
}

// Watch probes p every interval on its own goroutine
func (p *Poller) Watch(prober Prober, onClose func()) func() {
	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() { close(done) })
	}

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

				if prober.Probe() != Unreachable {
					continue
				}

				p.logger.Debug("watched window unreachable")
				stop()
				onClose()
				return
			}
		}
	}()

	return stop
}
