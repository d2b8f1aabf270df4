package sim

import (
	"sync"
	"time"
)

// Timer is a re-armable ticker. Arming replaces any running ticker.
// A disarmed timer's channel is nil, so selecting on it blocks.
type Timer struct {
	ticker   *time.Ticker
	interval time.Duration
}

// Arm starts ticking every d, stopping the previous ticker first.
// Non-positive intervals tick every millisecond.
func (t *Timer) Arm(d time.Duration) {
	t.Disarm()
	if d <= 0 {
		d = time.Millisecond
	}
	t.ticker = time.NewTicker(d)
	t.interval = d
}

// Disarm stops the ticker and clears the interval.
func (t *Timer) Disarm() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	t.interval = 0
}

// C returns the tick channel, nil while disarmed.
func (t *Timer) C() <-chan time.Time {
	if t.ticker == nil {
		return nil
	}
	return t.ticker.C
}

// Armed reports whether the timer is ticking.
func (t *Timer) Armed() bool {
	return t.ticker != nil
}

// Interval returns the current tick interval, 0 while disarmed.
func (t *Timer) Interval() time.Duration {
	return t.interval
}

// FlushGate defers a flush until every pending asynchronous load has
// finished, then runs it exactly once.
type FlushGate struct {
	mu        sync.Mutex
	pending   int
	requested bool
	flush     func()
}

// NewFlushGate returns a gate that calls flush.
func NewFlushGate(flush func()) *FlushGate {
	return &FlushGate{flush: flush}
}

// Begin registers a pending load.
func (g *FlushGate) Begin() {
	g.mu.Lock()
	g.pending++
	g.mu.Unlock()
}

// Done completes a pending load, running a requested flush if it was the
// last one.
func (g *FlushGate) Done() {
	g.mu.Lock()
	if g.pending > 0 {
		g.pending--
	}
	run := g.pending == 0 && g.requested
	if run {
		g.requested = false
	}
	g.mu.Unlock()

	if run {
		g.flush()
	}
}

// Request flushes now, or when the pending loads reach zero. Requests
// made while loads are pending collapse into one flush.
func (g *FlushGate) Request() {
	g.mu.Lock()
	run := g.pending == 0
	if !run {
		g.requested = true
	}
	g.mu.Unlock()

	if run {
		g.flush()
	}
}

// Pending returns the number of unfinished loads.
func (g *FlushGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}
