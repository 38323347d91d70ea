package timer

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRemainingIsDerivedFromDeadline(t *testing.T) {
	c := Start(epoch, 90*time.Second)

	if got := c.Remaining(epoch); got != 90 {
		t.Fatalf("expected 90, got %d", got)
	}
	if got := c.Remaining(epoch.Add(1500 * time.Millisecond)); got != 88 {
		t.Fatalf("expected floor to 88, got %d", got)
	}
	// A suspended process that wakes up late sees the true remaining time.
	if got := c.Remaining(epoch.Add(80 * time.Second)); got != 10 {
		t.Fatalf("expected 10 after jump, got %d", got)
	}
	if got := c.Remaining(epoch.Add(2 * time.Minute)); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
}

func TestStateTransitions(t *testing.T) {
	c := Resume(epoch.Add(time.Second))
	if c.Check(epoch) {
		t.Fatalf("should not expire before deadline")
	}
	if !c.Check(epoch.Add(time.Second)) {
		t.Fatalf("should expire exactly at deadline")
	}
	if c.Check(epoch.Add(time.Hour)) {
		t.Fatalf("expiry must be reported once")
	}
	c.Stop()
	if c.State() != Expired {
		t.Fatalf("stop must not leave Expired, got %s", c.State())
	}

	running := Start(epoch, time.Minute)
	running.Stop()
	if running.State() != Stopped || running.Check(epoch.Add(time.Hour)) {
		t.Fatalf("stopped countdown must never expire")
	}
}

func TestFormat(t *testing.T) {
	cases := map[int]string{
		0:     "0:00:00",
		5:     "0:00:05",
		600:   "0:10:00",
		3599:  "0:59:59",
		3600:  "1:00:00",
		45296: "12:34:56",
		-4:    "0:00:00",
	}
	for in, want := range cases {
		if got := Format(in); got != want {
			t.Errorf("Format(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestBandsAreMonotonic(t *testing.T) {
	rank := map[Band]int{BandCritical: 0, BandWarning: 1, BandNormal: 2}
	prev := -1
	for s := 0; s <= 1200; s++ {
		r := rank[BandFor(s)]
		if r < prev {
			t.Fatalf("band decreased at %ds", s)
		}
		prev = r
	}
	if BandFor(299) != BandCritical || BandFor(300) != BandWarning || BandFor(600) != BandNormal {
		t.Fatalf("unexpected thresholds")
	}
}
