package loader

import (
	"sync"
	"time"
)

// Clock abstracts timer creation so the debounce window is testable without
// wall-clock waits.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// NewRealClock returns the wall clock.
func NewRealClock() Clock { return realClock{} }

type debounceState int

const (
	debounceIdle debounceState = iota
	debouncePending
)

// Debouncer coalesces bursts of change events into a single callback. Each
// Trigger while pending cancels the previous timer, so the callback fires one
// window after the last event, not the first.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	clock  Clock
	fire   func()
	state  debounceState
	timer  Timer
	gen    uint64
}

// NewDebouncer returns a debouncer invoking fire after window of quiet.
func NewDebouncer(window time.Duration, clock Clock, fire func()) *Debouncer {
	if clock == nil {
		clock = realClock{}
	}
	return &Debouncer{window: window, clock: clock, fire: fire}
}

// Trigger records a change event, resetting the pending deadline.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == debouncePending && d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.state = debouncePending
	d.timer = d.clock.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.gen != gen {
			// Stop() missed this callback: it had already fired and was
			// waiting on the lock when a newer Trigger or Stop superseded it.
			d.mu.Unlock()
			return
		}
		d.state = debounceIdle
		d.timer = nil
		d.mu.Unlock()
		d.fire()
	})
}

// Stop cancels any pending callback, including one already in flight.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.state = debounceIdle
}
