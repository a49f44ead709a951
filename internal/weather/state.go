package weather

import (
	"errors"
	"time"
)

// Messages shown in place of a reading.
const (
	MsgDataUnavailable     = "Data Unavailable"
	MsgLocationUnavailable = "Location Unavailable"
)

// State is the weather readout. Temperature and WeatherCode are null
// until a reading succeeds and again after any failure.
type State struct {
	Temperature *float64  `json:"temperature"`
	WeatherCode *int      `json:"weather_code"`
	IsDay       bool      `json:"is_day"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Loading is the state before the first fetch completes.
func Loading() State {
	return State{IsDay: true, Loading: true}
}

// FromReading builds the readout for a successful fetch.
func FromReading(r Reading) State {
	temp := r.Temperature
	code := r.WeatherCode
	return State{
		Temperature: &temp,
		WeatherCode: &code,
		IsDay:       r.IsDay,
		Description: Describe(code),
		Icon:        Icon(code, r.IsDay),
		UpdatedAt:   r.FetchedAt,
	}
}

// Degraded builds the readout for a failed fetch. Internal error details
// are not exposed.
func Degraded(err error, at time.Time) State {
	msg := MsgDataUnavailable
	if errors.Is(err, ErrNoLocation) {
		msg = MsgLocationUnavailable
	}
	return State{
		IsDay:     true,
		Error:     msg,
		UpdatedAt: at,
	}
}
