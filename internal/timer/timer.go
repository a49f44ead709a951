// Package timer implements the stopwatch/countdown state machine.
//
// State is a value: every operation returns the next state and never fails,
// so the owner can replace its copy in one step. Progress is accumulated from
// wall-clock deltas between samples, never from frame counts, which keeps the
// timer accurate when frames arrive late or unevenly.
package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects between counting up and counting down.
type Mode string

const (
	Stopwatch Mode = "stopwatch"
	Countdown Mode = "countdown"
)

// Status is the run state of the timer.
type Status string

const (
	Idle    Status = "idle"
	Running Status = "running"
	Paused  Status = "paused"
)

// DefaultCountdown is the countdown duration a fresh timer starts with.
const DefaultCountdown = 5 * time.Minute

// ErrInvalidMode is returned by ParseMode for unknown mode names.
var ErrInvalidMode = errors.New("invalid timer mode")

// ParseMode converts a user-supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Stopwatch:
		return Stopwatch, nil
	case Countdown:
		return Countdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// State is a snapshot of the timer.
// Invariants: Elapsed >= 0 and 0 <= Remaining <= InitialDuration.
type State struct {
	Mode            Mode
	Status          Status
	Elapsed         time.Duration
	Remaining       time.Duration
	InitialDuration time.Duration
	LastTick        time.Time
}

// New returns an idle stopwatch whose countdown duration is initial.
func New(initial time.Duration) State {
	if initial < 0 {
		initial = 0
	}
	return State{
		Mode:            Stopwatch,
		Status:          Idle,
		Remaining:       initial,
		InitialDuration: initial,
	}
}

// SetMode switches mode from any state and clears progress.
func (s State) SetMode(mode Mode) State {
	s.Mode = mode
	s.Status = Idle
	s.Elapsed = 0
	s.Remaining = s.InitialDuration
	return s
}

// Start moves an idle or paused timer to running. Starting a running timer
// changes nothing. A countdown with nothing left stays idle until reset.
func (s State) Start(now time.Time) State {
	if s.Status == Running {
		return s
	}
	if s.Mode == Countdown && s.Remaining == 0 {
		return s
	}
	s.Status = Running
	s.LastTick = now
	return s
}

// Pause folds in the time since the last tick and freezes the timer.
// If that final delta finishes a countdown, the result is idle and finished is true.
// Pausing a timer that is not running changes nothing.
func (s State) Pause(now time.Time) (next State, finished bool) {
	if s.Status != Running {
		return s, false
	}
	s, finished = s.Tick(now)
	if finished {
		return s, true
	}
	s.Status = Paused
	return s, false
}

// Reset stops the timer and clears progress, keeping the current duration.
func (s State) Reset() State {
	s.Status = Idle
	s.Elapsed = 0
	s.Remaining = s.InitialDuration
	return s
}

// ResetTo stops the timer and installs d as the countdown duration.
func (s State) ResetTo(d time.Duration) State {
	if d < 0 {
		d = 0
	}
	s.InitialDuration = d
	return s.Reset()
}

// Tick accumulates the wall-clock delta since the last tick. It only has an
// effect while running. finished is true exactly on the tick where a countdown
// reaches zero; that tick also returns the timer to idle.
func (s State) Tick(now time.Time) (next State, finished bool) {
	if s.Status != Running {
		return s, false
	}

	delta := now.Sub(s.LastTick)
	if delta < 0 {
		// wall clock stepped backwards
		delta = 0
	}
	s.LastTick = now

	if s.Mode == Stopwatch {
		s.Elapsed += delta
		return s, false
	}

	prev := s.Remaining
	s.Remaining -= delta
	if s.Remaining < 0 {
		s.Remaining = 0
	}
	if prev > 0 && s.Remaining == 0 {
		s.Status = Idle
		return s, true
	}
	return s, false
}

// Display returns the value a clock face shows: elapsed time for a stopwatch,
// remaining time for a countdown.
func (s State) Display() time.Duration {
	if s.Mode == Countdown {
		return s.Remaining
	}
	return s.Elapsed
}

// Active reports whether the timer has been started and not reset.
func (s State) Active() bool {
	return s.Status == Running || s.Status == Paused
}

type stateJSON struct {
	Mode              Mode   `json:"mode"`
	Status            Status `json:"status"`
	ElapsedMs         int64  `json:"elapsed_ms"`
	RemainingMs       int64  `json:"remaining_ms"`
	InitialDurationMs int64  `json:"initial_duration_ms"`
	LastTick          int64  `json:"last_tick"`
	Display           string `json:"display"`
}

// MarshalJSON renders durations as integer milliseconds and LastTick as a
// Unix millisecond timestamp.
func (s State) MarshalJSON() ([]byte, error) {
	var lastTick int64
	if !s.LastTick.IsZero() {
		lastTick = s.LastTick.UnixMilli()
	}
	return json.Marshal(stateJSON{
		Mode:              s.Mode,
		Status:            s.Status,
		ElapsedMs:         s.Elapsed.Milliseconds(),
		RemainingMs:       s.Remaining.Milliseconds(),
		InitialDurationMs: s.InitialDuration.Milliseconds(),
		LastTick:          lastTick,
		Display:           FormatPrecise(s.Display()),
	})
}
