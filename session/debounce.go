package session

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of Trigger calls into one action, run once
// delay has passed without another Trigger.
type Debouncer struct {
	clock  Clock
	delay  time.Duration
	action func()

	mu      sync.Mutex
	gen     uint64
	timer   Timer
	stopped bool
}

func NewDebouncer(clock Clock, delay time.Duration, action func()) *Debouncer {
	return &Debouncer{clock: clock, delay: delay, action: action}
}

// Trigger restarts the quiet window.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.action()
}

// Stop cancels a pending action; later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
