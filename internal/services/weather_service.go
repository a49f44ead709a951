package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/domain"
	"github.com/mescon/neonclock/internal/eventbus"
	"github.com/mescon/neonclock/internal/logger"
	"github.com/mescon/neonclock/internal/weather"
)

// DefaultWeatherRefresh is the refresh schedule when none is configured.
const DefaultWeatherRefresh = "@every 30m"

// ErrWeatherDisabled is returned by Refresh while weather is switched off.
var ErrWeatherDisabled = errors.New("weather is disabled")

// ErrWeatherStopped is returned by SetEnabled after Stop.
var ErrWeatherStopped = errors.New("weather service is stopped")

// WeatherService keeps the weather readout fresh on a cron schedule while
// it is enabled.
type WeatherService struct {
	eventBus eventbus.Publisher
	fetcher  weather.Fetcher
	location *weather.Location
	spec     string
	clk      clock.Clock
	cron     *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	enabled bool
	stopped bool
	entry   cron.EntryID
	state   weather.State
}

// NewWeatherService creates a stopped service. loc may be nil, in which case
// every refresh reports the location as unavailable.
func NewWeatherService(eb eventbus.Publisher, fetcher weather.Fetcher, loc *weather.Location, spec string, clocks ...clock.Clock) *WeatherService {
	if spec == "" {
		spec = DefaultWeatherRefresh
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WeatherService{
		eventBus: eb,
		fetcher:  fetcher,
		location: loc,
		spec:     spec,
		clk:      clock.OrReal(clocks...),
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:      ctx,
		cancel:   cancel,
		state:    weather.Loading(),
	}
}

// Start validates the schedule, starts the scheduler and, when enabled,
// fetches once straight away.
func (s *WeatherService) Start(enabled bool) error {
	if _, err := cron.ParseStandard(s.spec); err != nil {
		return fmt.Errorf("invalid weather refresh schedule %q: %w", s.spec, err)
	}
	logger.Infof("Starting Weather Service (refresh %s)", s.spec)
	s.cron.Start()
	return s.SetEnabled(enabled)
}

// Stop cancels in-flight fetches and waits for scheduled jobs to finish.
// The service cannot be enabled again afterwards.
func (s *WeatherService) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.enabled = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// SetEnabled switches scheduled refreshes on or off. Enabling triggers an
// immediate refresh in the background.
func (s *WeatherService) SetEnabled(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		if !on {
			return nil
		}
		return ErrWeatherStopped
	}
	if on == s.enabled {
		return nil
	}
	if !on {
		s.cron.Remove(s.entry)
		s.enabled = false
		logger.Infof("Weather refresh disabled")
		return nil
	}

	entry, err := s.cron.AddFunc(s.spec, s.scheduledRefresh)
	if err != nil {
		return fmt.Errorf("failed to schedule weather refresh: %w", err)
	}
	s.entry = entry
	s.enabled = true
	s.state = weather.Loading()
	logger.Infof("Weather refresh enabled")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.scheduledRefresh()
	}()
	return nil
}

// Enabled reports whether scheduled refreshes are on.
func (s *WeatherService) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// State returns the current readout.
func (s *WeatherService) State() weather.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *WeatherService) scheduledRefresh() {
	_, err := s.Refresh(s.ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrWeatherDisabled) {
		logger.Warnf("Weather refresh failed: %v", err)
	}
}

// Refresh fetches now and updates the readout. A failed fetch still
// replaces the readout with the degraded state and returns the error.
func (s *WeatherService) Refresh(ctx context.Context) (weather.State, error) {
	if !s.Enabled() {
		return s.State(), ErrWeatherDisabled
	}

	reading, err := s.fetcher.Fetch(ctx, s.location)
	if errors.Is(err, context.Canceled) {
		return s.State(), err
	}

	var st weather.State
	if err != nil {
		st = weather.Degraded(err, s.clk.Now())
	} else {
		st = weather.FromReading(reading)
	}

	// a fetch that outlived a disable must not touch the readout
	s.mu.Lock()
	if !s.enabled {
		current := s.state
		s.mu.Unlock()
		return current, ErrWeatherDisabled
	}
	s.state = st
	s.mu.Unlock()

	if err != nil {
		s.publish(domain.WeatherFailed, map[string]interface{}{"error": st.Error}, st)
		return st, err
	}
	logger.Debugf("Weather updated: %.1f°C, %s", reading.Temperature, st.Description)
	s.publish(domain.WeatherUpdated, map[string]interface{}{
		"temperature":  reading.Temperature,
		"weather_code": reading.WeatherCode,
		"is_day":       reading.IsDay,
		"description":  st.Description,
	}, st)
	return st, nil
}

func (s *WeatherService) publish(et domain.EventType, data map[string]interface{}, st weather.State) {
	ev := domain.NewEvent(et, domain.AggregateWeather, "weather", data, st.UpdatedAt)
	if err := s.eventBus.Publish(ev); err != nil {
		logger.Warnf("Failed to publish %s: %v", et, err)
	}
}
