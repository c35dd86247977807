package attempt

import "time"

// TimerState is the countdown state machine: Idle -> Running -> Expired.
type TimerState uint8

const (
	TimerIdle TimerState = iota
	TimerRunning
	TimerExpired
)

func (s TimerState) String() string {
	switch s {
	case TimerRunning:
		return "running"
	case TimerExpired:
		return "expired"
	default:
		return "idle"
	}
}

// Countdown counts whole seconds down to zero. It never fails and never calls out;
// callers observe expiry by reading State after each Tick.
type Countdown struct {
	state     TimerState
	remaining int
	set       bool
}

// Start moves Idle to Running with seconds remaining. It is ignored in any other state.
// A non-positive duration leaves the timer Idle with no remaining time (an untimed attempt).
func (c *Countdown) Start(seconds int) bool {
	if c.state != TimerIdle || seconds <= 0 {
		return false
	}
	c.state = TimerRunning
	c.remaining = seconds
	c.set = true
	return true
}

// Tick decrements a running timer by one second and reports whether it expired on this tick.
// Remaining time is pinned at zero once expired.
func (c *Countdown) Tick() bool {
	if c.state != TimerRunning {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.state = TimerExpired
		return true
	}
	return false
}

// Stop moves Running to Idle and freezes the remaining time.
func (c *Countdown) Stop() {
	if c.state == TimerRunning {
		c.state = TimerIdle
	}
}

// Reset returns to Idle with no remaining time, from any state.
func (c *Countdown) Reset() {
	*c = Countdown{}
}

func (c *Countdown) State() TimerState {
	return c.state
}

// Remaining returns the seconds left; ok is false when the timer has never been started or was reset.
func (c *Countdown) Remaining() (seconds int, ok bool) {
	return c.remaining, c.set
}

func (c *Countdown) Expired() bool {
	return c.state == TimerExpired
}

// TickSource is a periodic tick resource. Whoever acquires one must Stop it.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type ticker struct {
	t *time.Ticker
}

// NewTicker acquires a TickSource firing every interval.
func NewTicker(interval time.Duration) TickSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &ticker{t: time.NewTicker(interval)}
}

func (t *ticker) C() <-chan time.Time { return t.t.C }

func (t *ticker) Stop() { t.t.Stop() }
