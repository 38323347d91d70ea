package clock

import (
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Callbacks run synchronously
// inside Advance, in deadline order.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*fakeTask
}

type fakeTask struct {
	clock *Fake
	at    time.Time
	seq   uint64
	fn    func()
	done  bool
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTask{clock: f, at: f.now.Add(d), seq: f.seq, fn: fn}
	f.tasks = append(f.tasks, t)
	return t
}

func (t *fakeTask) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward by d, running every task that falls due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.compactLocked()
			f.mu.Unlock()
			return
		}
		f.now = next.at
		next.done = true
		f.mu.Unlock()
		next.fn()
	}
}

// Pending reports how many tasks are still scheduled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTask {
	var next *fakeTask
	for _, t := range f.tasks {
		if t.done || t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) || (t.at.Equal(next.at) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (f *Fake) compactLocked() {
	live := f.tasks[:0]
	for _, t := range f.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	f.tasks = live
}
