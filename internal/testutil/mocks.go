// Package testutil provides test utilities: a deterministic clock, a
// recording cue player and an event collector.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/sound"
)

// =============================================================================
// MockClock - Testable time abstraction
// =============================================================================

// MockClock implements clock.Clock for testing, providing deterministic control
// over frame loops, repeating cues and timeouts.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*pendingFunc
}

type pendingFunc struct {
	executeAt time.Time
	seq       int
	fn        func()
	stopped   bool
}

// MockTimer implements clock.Timer for testing.
type MockTimer struct {
	clock *MockClock
	pf    *pendingFunc
}

// Compile-time assertion that MockClock implements clock.Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a new MockClock with the current time as initial value.
func NewMockClock() *MockClock {
	return &MockClock{now: time.Now()}
}

// NewMockClockAt creates a new MockClock with a specific initial time.
func NewMockClockAt(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mock's current time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// SetNow sets the mock's current time without triggering pending functions.
func (m *MockClock) SetNow(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// AfterFunc schedules f to be called after duration d.
func (m *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	pf := &pendingFunc{
		executeAt: m.now.Add(d),
		seq:       m.seq,
		fn:        f,
	}
	m.pending = append(m.pending, pf)
	return &MockTimer{clock: m, pf: pf}
}

// Advance moves time forward by d. Due functions run one at a time in
// schedule order, with Now() set to each function's due time while it runs,
// so callbacks that reschedule themselves keep firing inside the window.
// Returns the number of functions executed.
func (m *MockClock) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	executed := 0
	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.compactLocked()
			m.mu.Unlock()
			return executed
		}
		next.stopped = true
		if next.executeAt.After(m.now) {
			m.now = next.executeAt
		}
		m.mu.Unlock()

		next.fn()
		executed++
	}
}

// Step advances time in increments of step until total has elapsed.
func (m *MockClock) Step(total, step time.Duration) int {
	executed := 0
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		d := step
		if elapsed+step > total {
			d = total - elapsed
		}
		executed += m.Advance(d)
	}
	return executed
}

// PendingCount returns the number of scheduled functions that haven't been
// executed or stopped.
func (m *MockClock) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, pf := range m.pending {
		if !pf.stopped {
			count++
		}
	}
	return count
}

func (m *MockClock) nextDueLocked(target time.Time) *pendingFunc {
	var due []*pendingFunc
	for _, pf := range m.pending {
		if !pf.stopped && !pf.executeAt.After(target) {
			due = append(due, pf)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].executeAt.Equal(due[j].executeAt) {
			return due[i].seq < due[j].seq
		}
		return due[i].executeAt.Before(due[j].executeAt)
	})
	return due[0]
}

func (m *MockClock) compactLocked() {
	live := m.pending[:0]
	for _, pf := range m.pending {
		if !pf.stopped {
			live = append(live, pf)
		}
	}
	m.pending = live
}

// Stop prevents the timer from firing. Returns true if the timer was stopped,
// false if it had already fired or been stopped.
func (t *MockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.pf.stopped {
		return false
	}
	t.pf.stopped = true
	return true
}

// =============================================================================
// RecordingPlayer - captures cues instead of forwarding them
// =============================================================================

// RecordingPlayer implements sound.Player and records every cue it receives.
type RecordingPlayer struct {
	mu   sync.Mutex
	cues []sound.Cue
}

var _ sound.Player = (*RecordingPlayer)(nil)

// Play records the cue.
func (p *RecordingPlayer) Play(cue sound.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cues = append(p.cues, cue)
}

// Cues returns a copy of all recorded cues.
func (p *RecordingPlayer) Cues() []sound.Cue {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sound.Cue, len(p.cues))
	copy(out, p.cues)
	return out
}

// Count returns how many times the given cue was played.
func (p *RecordingPlayer) Count(cue sound.Cue) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.cues {
		if c == cue {
			n++
		}
	}
	return n
}

// Reset clears recorded cues.
func (p *RecordingPlayer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cues = nil
}

// =============================================================================
// EventRecorder - synchronous Publisher for assertions
// =============================================================================

// EventRecorder implements eventbus.Publisher synchronously: handlers run on
// the publishing goroutine, and every published event is kept.
type EventRecorder struct {
	mu       sync.Mutex
	events   []domain.Event
	handlers map[domain.EventType][]func(domain.Event)
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{handlers: make(map[domain.EventType][]func(domain.Event))}
}

// Publish records the event and runs subscribed handlers inline.
func (r *EventRecorder) Publish(event domain.Event) error {
	r.mu.Lock()
	event.ID = int64(len(r.events) + 1)
	r.events = append(r.events, event)
	handlers := append([]func(domain.Event){}, r.handlers[event.EventType]...)
	r.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Subscribe registers a handler for an event type.
func (r *EventRecorder) Subscribe(eventType domain.EventType, handler func(domain.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

// Events returns all recorded events of the given type, or all events when
// no type is given.
func (r *EventRecorder) Events(types ...domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(types) == 0 {
		return append([]domain.Event{}, r.events...)
	}
	var out []domain.Event
	for _, e := range r.events {
		for _, t := range types {
			if e.EventType == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Count returns the number of recorded events of the given type.
func (r *EventRecorder) Count(eventType domain.EventType) int {
	return len(r.Events(eventType))
}
