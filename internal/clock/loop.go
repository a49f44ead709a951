package clock

import (
	"sync"
	"time"
)

// token marks one generation of a Loop. A callback only reschedules while its
// token is still the loop's current, active token.
type token struct {
	active bool
}

// Loop calls fn every interval until stopped. It is built on Clock.AfterFunc
// rather than a ticker so the next callback is scheduled only after the
// current one returns: there is never more than one callback chain per Loop.
type Loop struct {
	clk      Clock
	interval time.Duration
	fn       func(now time.Time)

	mu      sync.Mutex
	current *token
	pending Timer
}

// NewLoop creates a stopped Loop. Non-positive intervals are treated as one millisecond.
func NewLoop(clk Clock, interval time.Duration, fn func(now time.Time)) *Loop {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Loop{
		clk:      clk,
		interval: interval,
		fn:       fn,
	}
}

// Start begins a new callback chain. If the loop is already running, the
// previous pending callback is cancelled first.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cancelLocked()
	tok := &token{active: true}
	l.current = tok
	l.scheduleLocked(tok)
}

// Stop cancels the loop. It returns true if the loop was running.
// Stopping a stopped loop is a no-op.
func (l *Loop) Stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelLocked()
}

// Running reports whether the loop has an active callback chain.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current != nil
}

// Interval returns the period between callbacks.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

func (l *Loop) cancelLocked() bool {
	if l.current == nil {
		return false
	}
	l.current.active = false
	l.current = nil
	if l.pending != nil {
		l.pending.Stop()
		l.pending = nil
	}
	return true
}

func (l *Loop) scheduleLocked(tok *token) {
	l.pending = l.clk.AfterFunc(l.interval, func() {
		l.fire(tok)
	})
}

func (l *Loop) fire(tok *token) {
	l.mu.Lock()
	if !tok.active || l.current != tok {
		l.mu.Unlock()
		return
	}
	l.pending = nil
	l.mu.Unlock()

	l.fn(l.clk.Now())

	l.mu.Lock()
	defer l.mu.Unlock()
	// fn may have stopped or restarted the loop
	if tok.active && l.current == tok {
		l.scheduleLocked(tok)
	}
}
