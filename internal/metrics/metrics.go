// Package metrics exposes Prometheus metrics for the clock daemon.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
)

// MetricsService turns domain events into Prometheus metrics.
type MetricsService struct {
	eventBus eventbus.Publisher
	registry *prometheus.Registry

	// Counters
	timerCommands   *prometheus.CounterVec
	timerFinishes   prometheus.Counter
	alarmsTriggered prometheus.Counter
	alarmDismissals *prometheus.CounterVec
	cuesTotal       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	weatherFetches  *prometheus.CounterVec
	settingsUpdates prometheus.Counter

	// Gauges
	alarmsConfigured prometheus.Gauge
	alarmRinging     prometheus.Gauge
	wsClients        prometheus.Gauge

	// Histograms
	frameInterval prometheus.Histogram

	mu         sync.Mutex
	alarmCount int
	lastFrame  time.Time
}

// NewMetricsService creates the metrics on a private registry that also
// carries the Go runtime and process collectors.
func NewMetricsService(eb eventbus.Publisher) *MetricsService {
	m := &MetricsService{
		eventBus: eb,
		registry: prometheus.NewRegistry(),

		timerCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neonclock_timer_commands_total",
				Help: "Timer commands applied, by action",
			},
			[]string{"action"}, // start, pause, reset, mode
		),

		timerFinishes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "neonclock_timer_finishes_total",
				Help: "Countdowns that reached zero",
			},
		),

		alarmsTriggered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "neonclock_alarms_triggered_total",
				Help: "Alarms that started ringing",
			},
		),

		alarmDismissals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neonclock_alarm_dismissals_total",
				Help: "Ringing alarms stopped, by reason",
			},
			[]string{"reason"}, // manual, timeout, deleted, shutdown
		),

		cuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neonclock_cues_total",
				Help: "Sound cues requested, by kind",
			},
			[]string{"cue"},
		),

		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neonclock_notifications_total",
				Help: "Notifications by outcome",
			},
			[]string{"outcome"}, // sent, failed
		),

		weatherFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neonclock_weather_fetches_total",
				Help: "Weather refreshes by outcome",
			},
			[]string{"outcome"}, // success, failed
		),

		settingsUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "neonclock_settings_updates_total",
				Help: "Accepted display settings updates",
			},
		),

		alarmsConfigured: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "neonclock_alarms_configured",
				Help: "Number of alarms in the collection",
			},
		),

		alarmRinging: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "neonclock_alarm_ringing",
				Help: "1 while an alarm is ringing",
			},
		),

		wsClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "neonclock_websocket_clients",
				Help: "Connected WebSocket clients",
			},
		),

		frameInterval: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "neonclock_frame_interval_seconds",
				Help:    "Wall-clock gap between consecutive clock frames",
				Buckets: prometheus.ExponentialBuckets(0.004, 2, 9), // 4ms to ~1s
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.timerCommands,
		m.timerFinishes,
		m.alarmsTriggered,
		m.alarmDismissals,
		m.cuesTotal,
		m.notifications,
		m.weatherFetches,
		m.settingsUpdates,
		m.alarmsConfigured,
		m.alarmRinging,
		m.wsClients,
		m.frameInterval,
	)

	return m
}

// Start subscribes to events and updates metrics
func (m *MetricsService) Start() {
	m.eventBus.Subscribe(domain.TimerStarted, m.timerCommand("start"))
	m.eventBus.Subscribe(domain.TimerPaused, m.timerCommand("pause"))
	m.eventBus.Subscribe(domain.TimerReset, m.timerCommand("reset"))
	m.eventBus.Subscribe(domain.TimerModeChanged, m.timerCommand("mode"))
	m.eventBus.Subscribe(domain.TimerFinished, m.handleTimerFinished)
	m.eventBus.Subscribe(domain.AlarmAdded, m.handleAlarmAdded)
	m.eventBus.Subscribe(domain.AlarmDeleted, m.handleAlarmDeleted)
	m.eventBus.Subscribe(domain.AlarmTriggered, m.handleAlarmTriggered)
	m.eventBus.Subscribe(domain.AlarmDismissed, m.handleAlarmDismissed)
	m.eventBus.Subscribe(domain.CuePlayed, m.handleCuePlayed)
	m.eventBus.Subscribe(domain.NotificationSent, m.handleNotificationSent)
	m.eventBus.Subscribe(domain.NotificationFailed, m.handleNotificationFailed)
	m.eventBus.Subscribe(domain.WeatherUpdated, m.handleWeatherUpdated)
	m.eventBus.Subscribe(domain.WeatherFailed, m.handleWeatherFailed)
	m.eventBus.Subscribe(domain.SettingsUpdated, m.handleSettingsUpdated)

	logger.Infof("Metrics service started")
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (m *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFrame records the gap since the previous frame. It has the frame
// handler signature so it can be registered on the frame source directly.
func (m *MetricsService) ObserveFrame(now time.Time) {
	m.mu.Lock()
	last := m.lastFrame
	m.lastFrame = now
	m.mu.Unlock()

	if last.IsZero() {
		return
	}
	if gap := now.Sub(last); gap >= 0 {
		m.frameInterval.Observe(gap.Seconds())
	}
}

// ResetFrames forgets the previous frame, so a pause in the frame source is
// not recorded as one long interval.
func (m *MetricsService) ResetFrames() {
	m.mu.Lock()
	m.lastFrame = time.Time{}
	m.mu.Unlock()
}

// SetWebSocketClients reports the number of connected clients.
func (m *MetricsService) SetWebSocketClients(n int) {
	m.wsClients.Set(float64(n))
}

// Event handlers

func (m *MetricsService) timerCommand(action string) func(domain.Event) {
	return func(domain.Event) {
		m.timerCommands.WithLabelValues(action).Inc()
	}
}

func (m *MetricsService) handleTimerFinished(event domain.Event) {
	m.timerFinishes.Inc()
}

func (m *MetricsService) handleAlarmAdded(event domain.Event) {
	m.mu.Lock()
	m.alarmCount++
	m.alarmsConfigured.Set(float64(m.alarmCount))
	m.mu.Unlock()
}

func (m *MetricsService) handleAlarmDeleted(event domain.Event) {
	m.mu.Lock()
	if m.alarmCount > 0 {
		m.alarmCount--
	}
	m.alarmsConfigured.Set(float64(m.alarmCount))
	m.mu.Unlock()
}

func (m *MetricsService) handleAlarmTriggered(event domain.Event) {
	m.alarmsTriggered.Inc()
	m.alarmRinging.Set(1)
}

func (m *MetricsService) handleAlarmDismissed(event domain.Event) {
	m.alarmDismissals.WithLabelValues(event.GetStringOr("reason", "unknown")).Inc()
	m.alarmRinging.Set(0)
}

func (m *MetricsService) handleCuePlayed(event domain.Event) {
	m.cuesTotal.WithLabelValues(event.GetStringOr("cue", "unknown")).Inc()
}

func (m *MetricsService) handleNotificationSent(event domain.Event) {
	m.notifications.WithLabelValues("sent").Inc()
}

func (m *MetricsService) handleNotificationFailed(event domain.Event) {
	m.notifications.WithLabelValues("failed").Inc()
}

func (m *MetricsService) handleWeatherUpdated(event domain.Event) {
	m.weatherFetches.WithLabelValues("success").Inc()
}

func (m *MetricsService) handleWeatherFailed(event domain.Event) {
	m.weatherFetches.WithLabelValues("failed").Inc()
}

func (m *MetricsService) handleSettingsUpdated(event domain.Event) {
	m.settingsUpdates.Inc()
}
