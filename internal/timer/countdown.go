package timer

import (
	"fmt"
	"time"
)

type State string

const (
	Running State = "running"
	Expired State = "expired"
	Stopped State = "stopped"
)

// Band is the urgency level used to style the remaining time.
type Band string

const (
	BandNormal   Band = "normal"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

const (
	criticalBelow = 5 * 60
	warningBelow  = 10 * 60
)

// Countdown is anchored to an absolute deadline so remaining time can be
// recomputed after a reload or a suspended process.
type Countdown struct {
	deadline time.Time
	state    State
}

// Start begins a fresh countdown of d from now.
func Start(now time.Time, d time.Duration) *Countdown {
	return &Countdown{deadline: now.Add(d), state: Running}
}

// Resume continues a countdown towards a persisted deadline.
func Resume(deadline time.Time) *Countdown {
	return &Countdown{deadline: deadline, state: Running}
}

func (c *Countdown) Deadline() time.Time { return c.deadline }
func (c *Countdown) State() State        { return c.state }

// Remaining is max(0, floor((deadline-now)/1s)).
func (c *Countdown) Remaining(now time.Time) int {
	left := c.deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Second)
}

// Check moves a running countdown to Expired once the deadline has passed and
// reports whether this call made that transition.
func (c *Countdown) Check(now time.Time) bool {
	if c.state != Running || now.Before(c.deadline) {
		return false
	}
	c.state = Expired
	return true
}

// Stop halts a running countdown. Expired countdowns stay expired.
func (c *Countdown) Stop() {
	if c.state == Running {
		c.state = Stopped
	}
}

// Format renders seconds as H:MM:SS with unpadded hours.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

func BandFor(seconds int) Band {
	switch {
	case seconds < criticalBelow:
		return BandCritical
	case seconds < warningBelow:
		return BandWarning
	default:
		return BandNormal
	}
}
