package services

import (
	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/settings"
)

// WeatherSwitch is the part of WeatherService the settings need.
type WeatherSwitch interface {
	SetEnabled(on bool) error
}

// SettingsService applies display settings updates and keeps the weather
// refresh in step with show_weather.
type SettingsService struct {
	eventBus eventbus.Publisher
	store    *settings.Store
	weather  WeatherSwitch
	clk      clock.Clock
}

// NewSettingsService creates the service. weather may be nil.
func NewSettingsService(eb eventbus.Publisher, initial settings.AppSettings, weather WeatherSwitch, clocks ...clock.Clock) *SettingsService {
	return &SettingsService{
		eventBus: eb,
		store:    settings.NewStore(initial),
		weather:  weather,
		clk:      clock.OrReal(clocks...),
	}
}

// Get returns the current settings.
func (s *SettingsService) Get() settings.AppSettings {
	return s.store.Get()
}

// Update validates and applies a partial update. Invalid patches return an
// error wrapping settings.ErrInvalid and change nothing.
func (s *SettingsService) Update(p settings.Patch) (settings.AppSettings, error) {
	prev, next, err := s.store.Update(p)
	if err != nil {
		return prev, err
	}

	if s.weather != nil && prev.ShowWeather != next.ShowWeather {
		if err := s.weather.SetEnabled(next.ShowWeather); err != nil {
			logger.Errorf("Failed to switch weather refresh: %v", err)
		}
	}

	ev := domain.NewEvent(domain.SettingsUpdated, domain.AggregateSettings, "settings", map[string]interface{}{
		"is_24_hour":   next.Is24Hour,
		"show_seconds": next.ShowSeconds,
		"show_date":    next.ShowDate,
		"show_weather": next.ShowWeather,
		"theme":        string(next.Theme),
		"theme_color":  next.ThemeColor,
		"mode":         string(next.Mode),
		"skin":         string(next.Skin),
		"matrix_speed": next.MatrixSpeed,
	}, s.clk.Now())
	if err := s.eventBus.Publish(ev); err != nil {
		logger.Warnf("Failed to publish %s: %v", domain.SettingsUpdated, err)
	}
	return next, nil
}
