package u

import (
	"sync/atomic"
	"time"
)

// Debouncer coalesces bursts of triggers into a single run of f.
type Debouncer struct {
	timeout time.Duration
	pending atomic.Bool
	f       func()
}

func NewDebouncer(timeout time.Duration, f func()) *Debouncer {
	PanicIf(timeout == 0, "debounce timeout is 0")
	return &Debouncer{timeout: timeout, f: f}
}

// Trigger schedules f to run after the timeout. Triggers that arrive
// while a run is already scheduled are folded into that run.
func (d *Debouncer) Trigger() {
	didSwap := d.pending.CompareAndSwap(false, true)
	if !didSwap {
		// already debouncing
		return
	}
	time.AfterFunc(d.timeout, func() {
		// clear pending before calling f() so a trigger arriving during
		// f() schedules a fresh run instead of being lost
		d.pending.Store(false)
		d.f()
	})
}
