package clock

import (
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled. *time.Timer satisfies it.
type Task interface {
	Stop() bool
}

// Clock supplies wall time and schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Task
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Task { return time.AfterFunc(d, f) }

// System is the real wall clock.
var System Clock = systemClock{}

// Debouncer coalesces bursts of triggers into one call after a quiet period.
// The most recent function wins.
type Debouncer struct {
	clock Clock
	delay time.Duration

	mu     sync.Mutex
	gen    uint64
	task   Task
	fn     func()
	closed bool
}

func NewDebouncer(c Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clock: c, delay: delay}
}

// Trigger (re)starts the quiet period with fn as the pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.task != nil {
		d.task.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = fn
	d.task = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn, d.task = nil, nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending call immediately, if any.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if d.closed || d.fn == nil {
		d.mu.Unlock()
		return false
	}
	fn := d.fn
	d.stopLocked()
	d.mu.Unlock()
	fn()
	return true
}

// Cancel drops the pending call without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Close cancels the pending call and ignores every later Trigger.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.closed = true
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *Debouncer) stopLocked() {
	if d.task != nil {
		d.task.Stop()
	}
	d.gen++
	d.fn, d.task = nil, nil
}

// Ticker calls fn every interval by re-arming a one-shot task after each run,
// so a slow callback never overlaps the next one.
type Ticker struct {
	clock    Clock
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	task    Task
	stopped bool
}

// Every starts a Ticker; the first call happens after one interval.
func Every(c Clock, interval time.Duration, fn func()) *Ticker {
	t := &Ticker{clock: c, interval: interval, fn: fn}
	t.mu.Lock()
	t.task = c.AfterFunc(interval, t.run)
	t.mu.Unlock()
	return t
}

func (t *Ticker) run() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fn()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.task = t.clock.AfterFunc(t.interval, t.run)
	}
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.task != nil {
		t.task.Stop()
		t.task = nil
	}
}

func (t *Ticker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}
