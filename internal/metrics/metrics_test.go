package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/testutil"
)

var at = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func newTestMetrics(t *testing.T) (*MetricsService, *testutil.EventRecorder) {
	t.Helper()
	rec := testutil.NewEventRecorder()
	m := NewMetricsService(rec)
	m.Start()
	return m, rec
}

func publish(t *testing.T, rec *testutil.EventRecorder, et domain.EventType, data map[string]interface{}) {
	t.Helper()
	require.NoError(t, rec.Publish(domain.NewEvent(et, "test", "id", data, at)))
}

func TestTimerCommands(t *testing.T) {
	m, rec := newTestMetrics(t)

	publish(t, rec, domain.TimerStarted, nil)
	publish(t, rec, domain.TimerStarted, nil)
	publish(t, rec, domain.TimerPaused, nil)
	publish(t, rec, domain.TimerReset, nil)
	publish(t, rec, domain.TimerModeChanged, nil)
	publish(t, rec, domain.TimerFinished, nil)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.timerCommands.WithLabelValues("start")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.timerCommands.WithLabelValues("pause")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.timerCommands.WithLabelValues("reset")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.timerCommands.WithLabelValues("mode")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.timerFinishes))
}

func TestAlarmMetrics(t *testing.T) {
	m, rec := newTestMetrics(t)

	publish(t, rec, domain.AlarmAdded, nil)
	publish(t, rec, domain.AlarmAdded, nil)
	publish(t, rec, domain.AlarmDeleted, nil)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.alarmsConfigured))

	publish(t, rec, domain.AlarmTriggered, nil)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.alarmRinging))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.alarmsTriggered))

	publish(t, rec, domain.AlarmDismissed, map[string]interface{}{"reason": "timeout"})
	assert.Equal(t, 0.0, promtest.ToFloat64(m.alarmRinging))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.alarmDismissals.WithLabelValues("timeout")))

	// never negative
	publish(t, rec, domain.AlarmDeleted, nil)
	publish(t, rec, domain.AlarmDeleted, nil)
	assert.Equal(t, 0.0, promtest.ToFloat64(m.alarmsConfigured))
}

func TestOutcomeCounters(t *testing.T) {
	m, rec := newTestMetrics(t)

	publish(t, rec, domain.CuePlayed, map[string]interface{}{"cue": "alarm"})
	publish(t, rec, domain.CuePlayed, map[string]interface{}{"cue": "click"})
	publish(t, rec, domain.NotificationSent, nil)
	publish(t, rec, domain.NotificationFailed, nil)
	publish(t, rec, domain.WeatherUpdated, nil)
	publish(t, rec, domain.WeatherFailed, nil)
	publish(t, rec, domain.WeatherFailed, nil)
	publish(t, rec, domain.SettingsUpdated, nil)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.cuesTotal.WithLabelValues("alarm")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.cuesTotal.WithLabelValues("click")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.notifications.WithLabelValues("sent")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.notifications.WithLabelValues("failed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.weatherFetches.WithLabelValues("success")))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.weatherFetches.WithLabelValues("failed")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.settingsUpdates))
}

func TestObserveFrame(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.ObserveFrame(at)
	m.ObserveFrame(at.Add(16 * time.Millisecond))
	m.ObserveFrame(at.Add(33 * time.Millisecond))
	m.ObserveFrame(at.Add(20 * time.Millisecond)) // clock stepped back: ignored

	assert.Equal(t, 1, promtest.CollectAndCount(m.frameInterval))

	m.ResetFrames()
	m.ObserveFrame(at.Add(time.Hour))

	body := scrape(t, m)
	assert.Contains(t, body, "neonclock_frame_interval_seconds_count 2")
}

func TestWebSocketClientsGauge(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.SetWebSocketClients(3)
	assert.Equal(t, 3.0, promtest.ToFloat64(m.wsClients))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m, rec := newTestMetrics(t)
	publish(t, rec, domain.TimerStarted, nil)

	body := scrape(t, m)
	assert.Contains(t, body, `neonclock_timer_commands_total{action="start"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNewMetricsService_Twice(t *testing.T) {
	// private registries: no duplicate registration panic
	assert.NotPanics(t, func() {
		NewMetricsService(testutil.NewEventRecorder())
		NewMetricsService(testutil.NewEventRecorder())
	})
}

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(raw))
}
