package sound_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/sound"
	"github.com/mescon/neonclock/internal/testutil"
)

func TestCueValid(t *testing.T) {
	assert.True(t, sound.CueAlarm.Valid())
	assert.True(t, sound.CueTick.Valid())
	assert.True(t, sound.CueClick.Valid())
	assert.False(t, sound.Cue("siren").Valid())
}

func TestBusPlayer_PublishesCueEvent(t *testing.T) {
	rec := testutil.NewEventRecorder()
	at := time.Date(2026, 7, 1, 6, 30, 0, 0, time.UTC)
	p := sound.NewBusPlayer(rec, func() time.Time { return at })

	p.Play(sound.CueAlarm)

	events := rec.Events(domain.CuePlayed)
	require.Len(t, events, 1)
	assert.Equal(t, "alarm", events[0].GetStringOr("cue", ""))
	assert.Equal(t, domain.AggregateSound, events[0].AggregateType)
	assert.Equal(t, at, events[0].CreatedAt)
}

func TestMultiPlayer_FansOut(t *testing.T) {
	a := &testutil.RecordingPlayer{}
	b := &testutil.RecordingPlayer{}
	var fromFunc []sound.Cue

	m := sound.MultiPlayer{a, b, sound.PlayerFunc(func(c sound.Cue) { fromFunc = append(fromFunc, c) }), sound.NopPlayer{}}
	m.Play(sound.CueClick)
	m.Play(sound.CueTick)

	assert.Equal(t, []sound.Cue{sound.CueClick, sound.CueTick}, a.Cues())
	assert.Equal(t, a.Cues(), b.Cues())
	assert.Equal(t, a.Cues(), fromFunc)
}
