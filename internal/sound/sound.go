// Package sound defines the audible cues the daemon asks the presentation
// layer to play. No audio is synthesised here.
package sound

import (
	"time"

	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
)

// Cue is an abstract sound kind.
type Cue string

const (
	CueAlarm Cue = "alarm"
	CueTick  Cue = "tick"
	CueClick Cue = "click"
)

// Valid reports whether c is a known cue kind.
func (c Cue) Valid() bool {
	switch c {
	case CueAlarm, CueTick, CueClick:
		return true
	}
	return false
}

// Player receives cue requests. Play must not block.
type Player interface {
	Play(cue Cue)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(cue Cue)

func (f PlayerFunc) Play(cue Cue) { f(cue) }

// NopPlayer discards every cue.
type NopPlayer struct{}

func (NopPlayer) Play(Cue) {}

// MultiPlayer forwards each cue to every player in order.
type MultiPlayer []Player

func (m MultiPlayer) Play(cue Cue) {
	for _, p := range m {
		p.Play(cue)
	}
}

// BusPlayer publishes a CuePlayed event per cue. The websocket hub relays
// those events to connected clients, which do the actual playback.
type BusPlayer struct {
	publisher eventbus.Publisher
	now       func() time.Time
}

// NewBusPlayer creates a player publishing to p.
func NewBusPlayer(p eventbus.Publisher, now func() time.Time) *BusPlayer {
	if now == nil {
		now = time.Now
	}
	return &BusPlayer{publisher: p, now: now}
}

// Play publishes the cue.
func (b *BusPlayer) Play(cue Cue) {
	event := domain.NewEvent(domain.CuePlayed, domain.AggregateSound, string(cue),
		map[string]interface{}{"cue": string(cue)}, b.now())
	if err := b.publisher.Publish(event); err != nil {
		logger.Warnf("Failed to publish %s cue: %v", cue, err)
	}
}
