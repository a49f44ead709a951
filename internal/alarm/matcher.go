package alarm

import (
	"sync"
	"time"

	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/sound"
)

const (
	// CueInterval is the period of the repeating alarm cue while ringing.
	CueInterval = 2 * time.Second
	// RingTimeout is how long an alarm rings before it dismisses itself.
	RingTimeout = 20 * time.Second
)

// DismissReason records why a ringing alarm stopped.
type DismissReason string

const (
	DismissManual   DismissReason = "manual"
	DismissTimeout  DismissReason = "timeout"
	DismissDeleted  DismissReason = "deleted"
	DismissShutdown DismissReason = "shutdown"
)

// Ring describes the currently ringing alarm.
type Ring struct {
	Alarm     Alarm     `json:"alarm"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ring is the owned ringing state. The repeating cue and the auto-dismiss
// timer belong to this instance only, so dismissing it always stops the
// right cue, whichever path gets there first.
type ring struct {
	info    Ring
	cue     *clock.Loop
	timeout clock.Timer
}

// DismissFunc is called once per ring, after its cue has been stopped.
type DismissFunc func(r Ring, reason DismissReason)

// Matcher fires at most one alarm at a time.
type Matcher struct {
	clk       clock.Clock
	player    sound.Player
	onDismiss DismissFunc

	mu          sync.Mutex
	active      *ring
	firedMinute string
}

// NewMatcher creates a matcher that plays alarm cues on player.
// onDismiss may be nil.
func NewMatcher(clk clock.Clock, player sound.Player, onDismiss DismissFunc) *Matcher {
	if player == nil {
		player = sound.NopPlayer{}
	}
	return &Matcher{
		clk:       clk,
		player:    player,
		onDismiss: onDismiss,
	}
}

// Check compares the sample against the alarms. An enabled alarm whose HH:MM
// equals the sample's local hour and minute matches only when the sample's
// second is zero. The first match in list order wins, nothing matches while
// an alarm is ringing, and each minute can start at most one ring.
// Returns the alarm that started ringing.
func (m *Matcher) Check(now time.Time, alarms []Alarm) (Alarm, bool) {
	if now.Second() != 0 {
		return Alarm{}, false
	}

	minute := now.Format("2006-01-02T15:04")
	hm := now.Format("15:04")

	m.mu.Lock()
	if m.active != nil || m.firedMinute == minute {
		m.mu.Unlock()
		return Alarm{}, false
	}

	var matched *Alarm
	for i := range alarms {
		if alarms[i].Enabled && alarms[i].Time == hm {
			matched = &alarms[i]
			break
		}
	}
	if matched == nil {
		m.mu.Unlock()
		return Alarm{}, false
	}

	r := &ring{
		info: Ring{
			Alarm:     *matched,
			StartedAt: now,
			ExpiresAt: now.Add(RingTimeout),
		},
	}
	r.cue = clock.NewLoop(m.clk, CueInterval, func(time.Time) {
		m.player.Play(sound.CueAlarm)
	})
	m.active = r
	m.firedMinute = minute

	r.cue.Start()
	r.timeout = m.clk.AfterFunc(RingTimeout, func() {
		m.dismiss(r, DismissTimeout)
	})
	m.mu.Unlock()

	logger.Infof("Alarm %s (%s) ringing", matched.Time, matched.Label)
	m.player.Play(sound.CueAlarm)
	return *matched, true
}

// Dismiss stops the ringing alarm. Returns false if nothing was ringing.
func (m *Matcher) Dismiss(reason DismissReason) (Ring, bool) {
	m.mu.Lock()
	r := m.active
	m.mu.Unlock()
	if r == nil {
		return Ring{}, false
	}
	return r.info, m.dismiss(r, reason)
}

// DismissAlarm stops the ring only if it belongs to the given alarm id.
func (m *Matcher) DismissAlarm(id string, reason DismissReason) (Ring, bool) {
	m.mu.Lock()
	r := m.active
	m.mu.Unlock()
	if r == nil || r.info.Alarm.ID != id {
		return Ring{}, false
	}
	return r.info, m.dismiss(r, reason)
}

// dismiss tears down r if it is still the active ring. A timeout belonging
// to an earlier ring finds a different active ring and does nothing.
func (m *Matcher) dismiss(r *ring, reason DismissReason) bool {
	m.mu.Lock()
	if m.active != r {
		m.mu.Unlock()
		return false
	}
	r.cue.Stop()
	r.timeout.Stop()
	m.active = nil
	m.mu.Unlock()

	logger.Infof("Alarm %s dismissed (%s)", r.info.Alarm.Time, reason)
	if m.onDismiss != nil {
		m.onDismiss(r.info, reason)
	}
	return true
}

// Active returns the ringing alarm, if any.
func (m *Matcher) Active() (Ring, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return Ring{}, false
	}
	return m.active.info, true
}

// ActiveID returns the id of the ringing alarm or "".
func (m *Matcher) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.info.Alarm.ID
}
