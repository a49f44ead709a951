package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mescon/neonclock/internal/alarm"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/sound"
	"github.com/mescon/neonclock/internal/testutil"
	"github.com/mescon/neonclock/internal/timer"
)

// two seconds before 07:00, so a 07:00 alarm rings after Advance(2s)
var clockStart = time.Date(2026, 1, 5, 6, 59, 58, 0, time.UTC)

type clockFixture struct {
	svc    *ClockService
	clk    *testutil.MockClock
	events *testutil.EventRecorder
	player *testutil.RecordingPlayer
}

func newClockFixture(t *testing.T, tickCues int) *clockFixture {
	t.Helper()
	f := &clockFixture{
		clk:    testutil.NewMockClockAt(clockStart),
		events: testutil.NewEventRecorder(),
		player: &testutil.RecordingPlayer{},
	}
	f.svc = NewClockService(f.events, ClockOptions{
		FrameRate:        10,
		DefaultCountdown: 5 * time.Second,
		TickCueSeconds:   tickCues,
		Player:           f.player,
	}, f.clk)
	f.svc.Start()
	t.Cleanup(f.svc.Stop)
	return f
}

func TestClockService_StopwatchAccumulates(t *testing.T) {
	f := newClockFixture(t, 0)

	f.svc.StartTimer()
	f.clk.Advance(time.Second)

	st := f.svc.Timer()
	if st.Status != timer.Running {
		t.Fatalf("Status = %s, want running", st.Status)
	}
	if st.Elapsed != time.Second {
		t.Errorf("Elapsed = %v, want 1s", st.Elapsed)
	}
	if n := f.events.Count(domain.TimerStarted); n != 1 {
		t.Errorf("TimerStarted events = %d, want 1", n)
	}
}

func TestClockService_StartWhileRunningIsNoop(t *testing.T) {
	f := newClockFixture(t, 0)

	f.svc.StartTimer()
	f.clk.Advance(300 * time.Millisecond)
	f.svc.StartTimer()
	f.clk.Advance(200 * time.Millisecond)

	if got := f.svc.Timer().Elapsed; got != 500*time.Millisecond {
		t.Errorf("Elapsed = %v, want 500ms", got)
	}
	if n := f.events.Count(domain.TimerStarted); n != 1 {
		t.Errorf("TimerStarted events = %d, want 1", n)
	}
	if n := f.player.Count(sound.CueClick); n != 2 {
		t.Errorf("click cues = %d, want 2 (one per command)", n)
	}
}

func TestClockService_PauseFoldsPendingDelta(t *testing.T) {
	f := newClockFixture(t, 0)

	f.svc.StartTimer()
	f.clk.Advance(250 * time.Millisecond) // frames at 100ms and 200ms

	st := f.svc.PauseTimer()
	if st.Status != timer.Paused {
		t.Fatalf("Status = %s, want paused", st.Status)
	}
	if st.Elapsed != 250*time.Millisecond {
		t.Errorf("Elapsed = %v, want 250ms", st.Elapsed)
	}

	f.clk.Advance(time.Second)
	if got := f.svc.Timer().Elapsed; got != 250*time.Millisecond {
		t.Errorf("paused timer moved to %v", got)
	}

	// resumed at +1250ms, next frame lands at +1300ms
	f.svc.StartTimer()
	f.clk.Advance(100 * time.Millisecond)
	if got := f.svc.Timer().Elapsed; got != 300*time.Millisecond {
		t.Errorf("Elapsed after resume = %v, want 300ms", got)
	}
	if n := f.events.Count(domain.TimerPaused); n != 1 {
		t.Errorf("TimerPaused events = %d, want 1", n)
	}
}

func TestClockService_CountdownFinishesOnce(t *testing.T) {
	f := newClockFixture(t, 3)

	f.svc.SetTimerMode(timer.Countdown)
	f.svc.StartTimer()
	f.clk.Advance(5 * time.Second)

	st := f.svc.Timer()
	if st.Status != timer.Idle || st.Remaining != 0 {
		t.Fatalf("state = %s/%v, want idle/0", st.Status, st.Remaining)
	}
	if n := f.events.Count(domain.TimerFinished); n != 1 {
		t.Fatalf("TimerFinished events = %d, want 1", n)
	}
	if n := f.player.Count(sound.CueAlarm); n != 1 {
		t.Errorf("alarm cues = %d, want 1", n)
	}
	if n := f.player.Count(sound.CueTick); n != 3 {
		t.Errorf("tick cues = %d, want 3", n)
	}

	// a finished countdown does not restart until reset
	f.svc.StartTimer()
	f.clk.Advance(2 * time.Second)
	if n := f.events.Count(domain.TimerFinished); n != 1 {
		t.Errorf("TimerFinished events after restart attempt = %d, want 1", n)
	}

	d := 2 * time.Second
	st = f.svc.ResetTimer(&d)
	if st.Remaining != d || st.InitialDuration != d {
		t.Errorf("ResetTimer(2s) = %v/%v", st.Remaining, st.InitialDuration)
	}
	f.svc.StartTimer()
	f.clk.Advance(2 * time.Second)
	if n := f.events.Count(domain.TimerFinished); n != 2 {
		t.Errorf("TimerFinished events after second run = %d, want 2", n)
	}
}

func TestClockService_FinishedEventCarriesDuration(t *testing.T) {
	f := newClockFixture(t, 0)

	f.svc.SetTimerMode(timer.Countdown)
	f.svc.StartTimer()
	f.clk.Advance(6 * time.Second)

	evs := f.events.Events(domain.TimerFinished)
	if len(evs) != 1 {
		t.Fatalf("TimerFinished events = %d, want 1", len(evs))
	}
	data, ok := evs[0].ParseTimerEventData()
	if !ok {
		t.Fatal("TimerFinished without timer data")
	}
	if data.InitialDurationMs != 5000 || data.Mode != "countdown" {
		t.Errorf("event data = %+v", data)
	}
}

func TestClockService_PauseCanFinishCountdown(t *testing.T) {
	f := newClockFixture(t, 0)
	d := 150 * time.Millisecond
	f.svc.ResetTimer(&d)
	f.svc.SetTimerMode(timer.Countdown)
	f.svc.StartTimer()

	f.clk.Advance(100 * time.Millisecond)
	f.clk.SetNow(clockStart.Add(200 * time.Millisecond))

	st := f.svc.PauseTimer()
	if st.Status != timer.Idle {
		t.Errorf("Status = %s, want idle", st.Status)
	}
	if n := f.events.Count(domain.TimerFinished); n != 1 {
		t.Errorf("TimerFinished events = %d, want 1", n)
	}
	if n := f.events.Count(domain.TimerPaused); n != 0 {
		t.Errorf("TimerPaused events = %d, want 0", n)
	}
}

func TestClockService_ModeChangeClearsProgress(t *testing.T) {
	f := newClockFixture(t, 0)

	f.svc.StartTimer()
	f.clk.Advance(time.Second)
	st := f.svc.SetTimerMode(timer.Countdown)

	if st.Status != timer.Idle || st.Elapsed != 0 || st.Remaining != 5*time.Second {
		t.Errorf("after SetTimerMode: %+v", st)
	}
	if n := f.events.Count(domain.TimerModeChanged); n != 1 {
		t.Errorf("TimerModeChanged events = %d, want 1", n)
	}
}

func TestClockService_AlarmRingsAndTimesOut(t *testing.T) {
	f := newClockFixture(t, 0)

	a, err := f.svc.AddAlarm("07:00", "Wake up")
	if err != nil {
		t.Fatalf("AddAlarm: %v", err)
	}

	f.clk.Advance(2 * time.Second)

	snap := f.svc.Snapshot()
	if snap.ActiveAlarmID == nil || *snap.ActiveAlarmID != a.ID {
		t.Fatalf("ActiveAlarmID = %v, want %s", snap.ActiveAlarmID, a.ID)
	}
	if n := f.events.Count(domain.AlarmTriggered); n != 1 {
		t.Errorf("AlarmTriggered events = %d, want 1", n)
	}

	// the rest of second zero must not fire again
	f.clk.Advance(900 * time.Millisecond)
	if n := f.events.Count(domain.AlarmTriggered); n != 1 {
		t.Errorf("AlarmTriggered events = %d, want 1", n)
	}

	f.clk.Advance(alarm.RingTimeout)
	if _, ok := f.svc.ActiveAlarm(); ok {
		t.Fatal("alarm still ringing after timeout")
	}

	dismissed := f.events.Events(domain.AlarmDismissed)
	if len(dismissed) != 1 {
		t.Fatalf("AlarmDismissed events = %d, want 1", len(dismissed))
	}
	if reason := dismissed[0].GetStringOr("reason", ""); reason != string(alarm.DismissTimeout) {
		t.Errorf("reason = %q, want timeout", reason)
	}
	if n := f.player.Count(sound.CueAlarm); n != 10 {
		t.Errorf("alarm cues = %d, want 10", n)
	}
}

func TestClockService_DismissAlarm(t *testing.T) {
	f := newClockFixture(t, 0)

	if _, ok := f.svc.DismissAlarm(); ok {
		t.Error("DismissAlarm with nothing ringing reported true")
	}

	if _, err := f.svc.AddAlarm("07:00", ""); err != nil {
		t.Fatalf("AddAlarm: %v", err)
	}
	f.clk.Advance(2 * time.Second)

	r, ok := f.svc.DismissAlarm()
	if !ok || r.Alarm.Label != alarm.DefaultLabel {
		t.Fatalf("DismissAlarm = %+v, %v", r, ok)
	}

	cues := f.player.Count(sound.CueAlarm)
	f.clk.Advance(30 * time.Second)
	if got := f.player.Count(sound.CueAlarm); got != cues {
		t.Errorf("alarm cues after dismiss went from %d to %d", cues, got)
	}
	if n := f.events.Count(domain.AlarmDismissed); n != 1 {
		t.Errorf("AlarmDismissed events = %d, want 1", n)
	}
}

func TestClockService_DeletingRingingAlarmDismissesIt(t *testing.T) {
	f := newClockFixture(t, 0)

	a, err := f.svc.AddAlarm("07:00", "Gym")
	if err != nil {
		t.Fatalf("AddAlarm: %v", err)
	}
	f.clk.Advance(2 * time.Second)

	if _, err := f.svc.DeleteAlarm(a.ID); err != nil {
		t.Fatalf("DeleteAlarm: %v", err)
	}
	if _, ok := f.svc.ActiveAlarm(); ok {
		t.Error("deleted alarm still ringing")
	}

	dismissed := f.events.Events(domain.AlarmDismissed)
	if len(dismissed) != 1 || dismissed[0].GetStringOr("reason", "") != string(alarm.DismissDeleted) {
		t.Errorf("AlarmDismissed events = %+v", dismissed)
	}
	if len(f.svc.Alarms()) != 0 {
		t.Errorf("Alarms() = %v, want empty", f.svc.Alarms())
	}
}

func TestClockService_DisabledAlarmDoesNotRing(t *testing.T) {
	f := newClockFixture(t, 0)

	a, _ := f.svc.AddAlarm("07:00", "")
	toggled, err := f.svc.ToggleAlarm(a.ID)
	if err != nil || toggled.Enabled {
		t.Fatalf("ToggleAlarm = %+v, %v", toggled, err)
	}

	f.clk.Advance(5 * time.Second)
	if n := f.events.Count(domain.AlarmTriggered); n != 0 {
		t.Errorf("AlarmTriggered events = %d, want 0", n)
	}
	if n := f.events.Count(domain.AlarmToggled); n != 1 {
		t.Errorf("AlarmToggled events = %d, want 1", n)
	}
}

func TestClockService_AlarmErrors(t *testing.T) {
	f := newClockFixture(t, 0)

	if _, err := f.svc.AddAlarm("7:00", "bad"); !errors.Is(err, alarm.ErrInvalidTime) {
		t.Errorf("AddAlarm(7:00) error = %v, want ErrInvalidTime", err)
	}
	if _, err := f.svc.ToggleAlarm("missing"); !errors.Is(err, alarm.ErrNotFound) {
		t.Errorf("ToggleAlarm error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.DeleteAlarm("missing"); !errors.Is(err, alarm.ErrNotFound) {
		t.Errorf("DeleteAlarm error = %v, want ErrNotFound", err)
	}
	if n := len(f.events.Events()); n != 0 {
		t.Errorf("failed commands published %d events", n)
	}
	if n := f.player.Count(sound.CueClick); n != 0 {
		t.Errorf("failed commands played %d clicks", n)
	}
}

func TestClockService_StopSilencesEverything(t *testing.T) {
	f := newClockFixture(t, 0)

	if _, err := f.svc.AddAlarm("07:00", ""); err != nil {
		t.Fatalf("AddAlarm: %v", err)
	}
	f.clk.Advance(2 * time.Second)

	f.svc.Stop()
	if f.svc.Running() {
		t.Error("Running() after Stop")
	}
	if n := f.clk.PendingCount(); n != 0 {
		t.Errorf("PendingCount = %d after Stop, want 0", n)
	}
	dismissed := f.events.Events(domain.AlarmDismissed)
	if len(dismissed) != 1 || dismissed[0].GetStringOr("reason", "") != string(alarm.DismissShutdown) {
		t.Errorf("AlarmDismissed events = %+v", dismissed)
	}
}

func TestClockService_OnFrameAfterClock(t *testing.T) {
	f := newClockFixture(t, 0)
	f.svc.StartTimer()

	var seen []time.Duration
	f.svc.OnFrame(func(time.Time) {
		seen = append(seen, f.svc.Timer().Elapsed)
	})
	f.clk.Advance(200 * time.Millisecond)

	if len(seen) != 2 || seen[0] != 100*time.Millisecond {
		t.Errorf("extra handler saw %v, want [100ms 200ms]", seen)
	}
}

func TestClockService_Snapshot(t *testing.T) {
	clk := testutil.NewMockClockAt(clockStart)
	svc := NewClockService(testutil.NewEventRecorder(), ClockOptions{FrameRate: 10}, clk)

	snap := svc.Snapshot()
	if !snap.CurrentTime.Equal(clockStart) {
		t.Errorf("CurrentTime before first frame = %v, want %v", snap.CurrentTime, clockStart)
	}
	if snap.Timer.InitialDuration != timer.DefaultCountdown {
		t.Errorf("InitialDuration = %v, want default", snap.Timer.InitialDuration)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, want := range []string{`"active_alarm_id":null`, `"active_alarm":null`, `"alarms":[]`, `"mode":"stopwatch"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("snapshot JSON %s missing %s", raw, want)
		}
	}
}
