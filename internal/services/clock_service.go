package services

import (
	"sync"
	"time"

	"github.com/mescon/neonclock/internal/alarm"
	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/sound"
	"github.com/mescon/neonclock/internal/timer"
)

// timerAggregateID is the aggregate id of the single timer.
const timerAggregateID = "timer"

// ClockOptions configures a ClockService. Zero values use defaults.
type ClockOptions struct {
	FrameRate        int
	DefaultCountdown time.Duration
	// TickCueSeconds is the final stretch of a countdown during which a tick
	// cue plays once per second. Zero disables tick cues.
	TickCueSeconds int
	// Player receives every cue in addition to the event bus.
	Player sound.Player
}

// Snapshot is a read-only copy of everything a clock face renders.
type Snapshot struct {
	CurrentTime   time.Time     `json:"current_time"`
	Timer         timer.State   `json:"timer"`
	ActiveAlarmID *string       `json:"active_alarm_id"`
	ActiveAlarm   *alarm.Ring   `json:"active_alarm"`
	Alarms        []alarm.Alarm `json:"alarms"`
}

// ClockService owns the frame source, the timer and the alarms. Frames and
// commands are serialised by one mutex: each frame samples the time, updates
// the timer, checks the alarms and publishes what changed before the next
// frame or command runs.
type ClockService struct {
	eventBus eventbus.Publisher
	clk      clock.Clock
	frames   *clock.FrameSource
	player   sound.Player
	tickCues int

	alarms  *alarm.Store
	matcher *alarm.Matcher

	mu    sync.Mutex
	now   time.Time
	timer timer.State
}

// NewClockService creates a stopped clock service.
func NewClockService(eb eventbus.Publisher, opts ClockOptions, clocks ...clock.Clock) *ClockService {
	clk := clock.OrReal(clocks...)

	if opts.DefaultCountdown <= 0 {
		opts.DefaultCountdown = timer.DefaultCountdown
	}
	if opts.TickCueSeconds < 0 {
		opts.TickCueSeconds = 0
	}

	player := sound.MultiPlayer{sound.NewBusPlayer(eb, clk.Now)}
	if opts.Player != nil {
		player = append(player, opts.Player)
	}

	s := &ClockService{
		eventBus: eb,
		clk:      clk,
		frames:   clock.NewFrameSource(clk, opts.FrameRate),
		player:   player,
		tickCues: opts.TickCueSeconds,
		alarms:   alarm.NewStore(),
		timer:    timer.New(opts.DefaultCountdown),
	}
	s.matcher = alarm.NewMatcher(clk, player, s.onDismiss)
	s.frames.OnFrame(s.onFrame)
	return s
}

// Start begins producing frames.
func (s *ClockService) Start() {
	logger.Infof("Starting clock at %d fps", int(time.Second/s.frames.FrameInterval()))
	s.frames.Start()
}

// Stop halts frames and silences a ringing alarm.
func (s *ClockService) Stop() {
	s.frames.Stop()
	s.matcher.Dismiss(alarm.DismissShutdown)
	logger.Infof("Clock stopped after %d frames", s.frames.Frames())
}

// OnFrame registers an additional frame handler, called after the clock
// has processed the frame.
func (s *ClockService) OnFrame(h clock.FrameHandler) {
	s.frames.OnFrame(h)
}

// Running reports whether frames are being produced.
func (s *ClockService) Running() bool {
	return s.frames.Running()
}

func (s *ClockService) onFrame(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now

	prev := s.timer
	next, finished := prev.Tick(now)
	s.timer = next
	if finished {
		s.finishLocked(next)
	} else if s.crossedTickLocked(prev, next) {
		s.player.Play(sound.CueTick)
	}

	if a, ok := s.matcher.Check(now, s.alarms.List()); ok {
		s.publish(domain.AlarmTriggered, domain.AggregateAlarm, a.ID, alarmData(a, ""), now)
	}
}

// crossedTickLocked reports whether a running countdown just entered one of
// its last tickCues whole seconds.
func (s *ClockService) crossedTickLocked(prev, next timer.State) bool {
	if s.tickCues == 0 || next.Mode != timer.Countdown || next.Status != timer.Running {
		return false
	}
	before, after := ceilSeconds(prev.Remaining), ceilSeconds(next.Remaining)
	return after < before && after >= 1 && after <= int64(s.tickCues)
}

func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func (s *ClockService) finishLocked(st timer.State) {
	logger.Infof("Countdown of %s finished", timer.FormatClock(st.InitialDuration))
	s.player.Play(sound.CueAlarm)
	s.publish(domain.TimerFinished, domain.AggregateTimer, timerAggregateID, timerData(st), s.clk.Now())
}

// StartTimer starts or resumes the timer.
func (s *ClockService) StartTimer() timer.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Play(sound.CueClick)
	now := s.clk.Now()
	prev := s.timer
	s.timer = prev.Start(now)
	if s.timer.Status != prev.Status {
		s.publish(domain.TimerStarted, domain.AggregateTimer, timerAggregateID, timerData(s.timer), now)
	}
	return s.timer
}

// PauseTimer pauses a running timer.
func (s *ClockService) PauseTimer() timer.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Play(sound.CueClick)
	now := s.clk.Now()
	prev := s.timer
	next, finished := prev.Pause(now)
	s.timer = next
	switch {
	case finished:
		s.finishLocked(next)
	case next.Status != prev.Status:
		s.publish(domain.TimerPaused, domain.AggregateTimer, timerAggregateID, timerData(next), now)
	}
	return s.timer
}

// ResetTimer stops the timer and clears progress. A non-nil duration also
// replaces the countdown duration.
func (s *ClockService) ResetTimer(duration *time.Duration) timer.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Play(sound.CueClick)
	if duration != nil {
		s.timer = s.timer.ResetTo(*duration)
	} else {
		s.timer = s.timer.Reset()
	}
	s.publish(domain.TimerReset, domain.AggregateTimer, timerAggregateID, timerData(s.timer), s.clk.Now())
	return s.timer
}

// SetTimerMode switches between stopwatch and countdown.
func (s *ClockService) SetTimerMode(mode timer.Mode) timer.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Play(sound.CueClick)
	s.timer = s.timer.SetMode(mode)
	s.publish(domain.TimerModeChanged, domain.AggregateTimer, timerAggregateID, timerData(s.timer), s.clk.Now())
	return s.timer
}

// Timer returns the timer as of the last frame or command.
func (s *ClockService) Timer() timer.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// AddAlarm adds an enabled alarm. Returns alarm.ErrInvalidTime for
// malformed times.
func (s *ClockService) AddAlarm(at, label string) (alarm.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	a, err := s.alarms.Add(at, label, now)
	if err != nil {
		return alarm.Alarm{}, err
	}
	s.player.Play(sound.CueClick)
	logger.Infof("Added alarm %s (%s)", a.Time, a.Label)
	s.publish(domain.AlarmAdded, domain.AggregateAlarm, a.ID, alarmData(a, ""), now)
	return a, nil
}

// ToggleAlarm flips an alarm's enabled flag.
func (s *ClockService) ToggleAlarm(id string) (alarm.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.alarms.Toggle(id)
	if err != nil {
		return alarm.Alarm{}, err
	}
	s.player.Play(sound.CueClick)
	s.publish(domain.AlarmToggled, domain.AggregateAlarm, a.ID, alarmData(a, ""), s.clk.Now())
	return a, nil
}

// DeleteAlarm removes an alarm, dismissing it first if it is ringing.
func (s *ClockService) DeleteAlarm(id string) (alarm.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.alarms.Delete(id)
	if err != nil {
		return alarm.Alarm{}, err
	}
	s.player.Play(sound.CueClick)
	s.matcher.DismissAlarm(id, alarm.DismissDeleted)
	logger.Infof("Deleted alarm %s (%s)", a.Time, a.Label)
	s.publish(domain.AlarmDeleted, domain.AggregateAlarm, a.ID, alarmData(a, ""), s.clk.Now())
	return a, nil
}

// DismissAlarm silences the ringing alarm. Returns false if none was ringing.
func (s *ClockService) DismissAlarm() (alarm.Ring, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.player.Play(sound.CueClick)
	return s.matcher.Dismiss(alarm.DismissManual)
}

// Alarms returns a copy of the alarm list in insertion order.
func (s *ClockService) Alarms() []alarm.Alarm {
	return s.alarms.List()
}

// ActiveAlarm returns the ringing alarm, if any.
func (s *ClockService) ActiveAlarm() (alarm.Ring, bool) {
	return s.matcher.Active()
}

// Snapshot returns the render state. CurrentTime is the last frame sample,
// or the clock's time before the first frame.
func (s *ClockService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		CurrentTime: s.now,
		Timer:       s.timer,
		Alarms:      s.alarms.List(),
	}
	if snap.CurrentTime.IsZero() {
		snap.CurrentTime = s.clk.Now()
	}
	if r, ok := s.matcher.Active(); ok {
		id := r.Alarm.ID
		snap.ActiveAlarmID = &id
		snap.ActiveAlarm = &r
	}
	return snap
}

// onDismiss runs outside the service lock: the auto-dismiss timer calls it
// from its own goroutine.
func (s *ClockService) onDismiss(r alarm.Ring, reason alarm.DismissReason) {
	s.publish(domain.AlarmDismissed, domain.AggregateAlarm, r.Alarm.ID, alarmData(r.Alarm, reason), s.clk.Now())
}

func (s *ClockService) publish(et domain.EventType, aggType, aggID string, data map[string]interface{}, at time.Time) {
	if err := s.eventBus.Publish(domain.NewEvent(et, aggType, aggID, data, at)); err != nil {
		logger.Warnf("Failed to publish %s: %v", et, err)
	}
}

func timerData(st timer.State) map[string]interface{} {
	return domain.TimerEventData{
		Mode:              string(st.Mode),
		Status:            string(st.Status),
		ElapsedMs:         st.Elapsed.Milliseconds(),
		RemainingMs:       st.Remaining.Milliseconds(),
		InitialDurationMs: st.InitialDuration.Milliseconds(),
	}.ToMap()
}

func alarmData(a alarm.Alarm, reason alarm.DismissReason) map[string]interface{} {
	return domain.AlarmEventData{
		AlarmID: a.ID,
		Time:    a.Time,
		Label:   a.Label,
		Enabled: a.Enabled,
		Reason:  string(reason),
	}.ToMap()
}
