package panel

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the default debounce window for filesystem change
// notifications.
const DefaultQuietPeriod = time.Second

// ChangeDebouncer coalesces bursts of filesystem-change notifications into
// a single flush. Every Notify restarts the quiet-period timer; the flush
// callback runs once the timer expires uninterrupted. No notification is
// dropped without eventually causing exactly one flush.
type ChangeDebouncer struct {
	mu      sync.Mutex
	timer   *time.Timer
	quiet   time.Duration
	flush   func()
	stopped bool
}

// NewChangeDebouncer creates a debouncer invoking flush after the quiet
// period; zero or negative falls back to DefaultQuietPeriod.
func NewChangeDebouncer(quiet time.Duration, flush func()) *ChangeDebouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &ChangeDebouncer{quiet: quiet, flush: flush}
}

// Notify records one filesystem change, restarting the quiet period.
func (d *ChangeDebouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

func (d *ChangeDebouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.flush()
}

// Stop cancels any pending flush and ignores further notifications.
func (d *ChangeDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
