package domain

import (
	"time"
)

type EventType string

const (
	// Timer lifecycle
	TimerStarted     EventType = "TimerStarted"
	TimerPaused      EventType = "TimerPaused"
	TimerReset       EventType = "TimerReset"
	TimerModeChanged EventType = "TimerModeChanged"
	TimerFinished    EventType = "TimerFinished"

	// Alarm collection and ringing state
	AlarmAdded     EventType = "AlarmAdded"
	AlarmToggled   EventType = "AlarmToggled"
	AlarmDeleted   EventType = "AlarmDeleted"
	AlarmTriggered EventType = "AlarmTriggered"
	AlarmDismissed EventType = "AlarmDismissed"

	// Sound cue requests forwarded to the presentation layer
	CuePlayed EventType = "CuePlayed"

	WeatherUpdated  EventType = "WeatherUpdated"
	WeatherFailed   EventType = "WeatherFailed"
	SettingsUpdated EventType = "SettingsUpdated"

	NotificationSent   EventType = "NotificationSent"
	NotificationFailed EventType = "NotificationFailed"
)

// Aggregate types
const (
	AggregateTimer    = "timer"
	AggregateAlarm    = "alarm"
	AggregateSound    = "sound"
	AggregateWeather  = "weather"
	AggregateSettings = "settings"
	AggregateNotifier = "notification"
)

type Event struct {
	ID            int64                  `json:"id"`
	AggregateType string                 `json:"aggregate_type"`
	AggregateID   string                 `json:"aggregate_id"`
	EventType     EventType              `json:"event_type"`
	EventData     map[string]interface{} `json:"event_data"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewEvent builds an event stamped with the given time.
func NewEvent(eventType EventType, aggregateType, aggregateID string, data map[string]interface{}, at time.Time) Event {
	if data == nil {
		data = make(map[string]interface{})
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		EventData:     data,
		CreatedAt:     at,
	}
}

// =============================================================================
// Type-safe event data accessors
// =============================================================================

// GetString safely extracts a string field from EventData.
func (e *Event) GetString(key string) (string, bool) {
	if e.EventData == nil {
		return "", false
	}
	v, ok := e.EventData[key].(string)
	return v, ok
}

// GetStringOr extracts a string field or returns the default value.
func (e *Event) GetStringOr(key, defaultVal string) string {
	if v, ok := e.GetString(key); ok {
		return v
	}
	return defaultVal
}

// GetInt64 safely extracts an int64 field from EventData.
// Handles both int64 and float64 (JSON unmarshaling produces float64).
func (e *Event) GetInt64(key string) (int64, bool) {
	if e.EventData == nil {
		return 0, false
	}
	switch v := e.EventData[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// GetInt64Or extracts an int64 field or returns the default value.
func (e *Event) GetInt64Or(key string, defaultVal int64) int64 {
	if v, ok := e.GetInt64(key); ok {
		return v
	}
	return defaultVal
}

// GetBool safely extracts a bool field from EventData.
func (e *Event) GetBool(key string) (bool, bool) {
	if e.EventData == nil {
		return false, false
	}
	v, ok := e.EventData[key].(bool)
	return v, ok
}

// GetBoolOr extracts a bool field or returns the default value.
func (e *Event) GetBoolOr(key string, defaultVal bool) bool {
	if v, ok := e.GetBool(key); ok {
		return v
	}
	return defaultVal
}

// =============================================================================
// Typed event data structures
// =============================================================================

// AlarmEventData is carried by alarm events.
type AlarmEventData struct {
	AlarmID string `json:"alarm_id"`
	Time    string `json:"time"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason,omitempty"` // AlarmDismissed only: "manual", "timeout", "deleted", "shutdown"
}

// ToMap converts the data into an EventData map.
func (d AlarmEventData) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"alarm_id": d.AlarmID,
		"time":     d.Time,
		"label":    d.Label,
		"enabled":  d.Enabled,
	}
	if d.Reason != "" {
		m["reason"] = d.Reason
	}
	return m
}

// ParseAlarmEventData extracts typed alarm data from an event.
func (e *Event) ParseAlarmEventData() (AlarmEventData, bool) {
	id, ok := e.GetString("alarm_id")
	if !ok {
		return AlarmEventData{}, false
	}
	return AlarmEventData{
		AlarmID: id,
		Time:    e.GetStringOr("time", ""),
		Label:   e.GetStringOr("label", ""),
		Enabled: e.GetBoolOr("enabled", false),
		Reason:  e.GetStringOr("reason", ""),
	}, true
}

// TimerEventData is carried by timer events.
type TimerEventData struct {
	Mode              string `json:"mode"`
	Status            string `json:"status"`
	ElapsedMs         int64  `json:"elapsed_ms"`
	RemainingMs       int64  `json:"remaining_ms"`
	InitialDurationMs int64  `json:"initial_duration_ms"`
}

// ToMap converts the data into an EventData map.
func (d TimerEventData) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"mode":                d.Mode,
		"status":              d.Status,
		"elapsed_ms":          d.ElapsedMs,
		"remaining_ms":        d.RemainingMs,
		"initial_duration_ms": d.InitialDurationMs,
	}
}

// ParseTimerEventData extracts typed timer data from an event.
func (e *Event) ParseTimerEventData() (TimerEventData, bool) {
	mode, ok := e.GetString("mode")
	if !ok {
		return TimerEventData{}, false
	}
	return TimerEventData{
		Mode:              mode,
		Status:            e.GetStringOr("status", ""),
		ElapsedMs:         e.GetInt64Or("elapsed_ms", 0),
		RemainingMs:       e.GetInt64Or("remaining_ms", 0),
		InitialDurationMs: e.GetInt64Or("initial_duration_ms", 0),
	}, true
}
