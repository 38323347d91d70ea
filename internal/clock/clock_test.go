package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func TestDebouncerCoalescesToLatest(t *testing.T) {
	fake := NewFake(epoch)
	d := NewDebouncer(fake, 500*time.Millisecond)

	var got []string
	d.Trigger(func() { got = append(got, "first") })
	fake.Advance(300 * time.Millisecond)
	d.Trigger(func() { got = append(got, "second") })
	fake.Advance(300 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("quiet period restarted, expected no call yet, got %v", got)
	}
	fake.Advance(200 * time.Millisecond)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected single call with latest fn, got %v", got)
	}
	if d.Pending() {
		t.Fatalf("nothing should be pending after firing")
	}
}

func TestDebouncerCloseDropsPending(t *testing.T) {
	fake := NewFake(epoch)
	d := NewDebouncer(fake, time.Second)

	calls := 0
	d.Trigger(func() { calls++ })
	d.Close()
	d.Trigger(func() { calls++ })
	fake.Advance(5 * time.Second)
	if calls != 0 {
		t.Fatalf("closed debouncer must never fire, got %d calls", calls)
	}
	if fake.Pending() != 0 {
		t.Fatalf("expected no scheduled tasks, got %d", fake.Pending())
	}
}

func TestDebouncerFlushRunsImmediately(t *testing.T) {
	fake := NewFake(epoch)
	d := NewDebouncer(fake, time.Second)

	calls := 0
	d.Trigger(func() { calls++ })
	if !d.Flush() {
		t.Fatalf("expected flush to run pending call")
	}
	fake.Advance(2 * time.Second)
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
	if d.Flush() {
		t.Fatalf("second flush has nothing to run")
	}
}

func TestTickerStopsFromInsideCallback(t *testing.T) {
	fake := NewFake(epoch)
	ticks := 0
	var ticker *Ticker
	ticker = Every(fake, time.Second, func() {
		ticks++
		if ticks == 3 {
			ticker.Stop()
		}
	})
	fake.Advance(10 * time.Second)
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
	if !ticker.Stopped() || fake.Pending() != 0 {
		t.Fatalf("ticker should be stopped with nothing scheduled")
	}
}

func TestFakeRunsTasksInDeadlineOrder(t *testing.T) {
	fake := NewFake(epoch)
	var order []int
	fake.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	fake.AfterFunc(time.Second, func() { order = append(order, 1) })
	stopped := fake.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	stopped.Stop()

	fake.Advance(5 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("unexpected order %v", order)
	}
	if !fake.Now().Equal(epoch.Add(5 * time.Second)) {
		t.Fatalf("clock not advanced to target")
	}
}
