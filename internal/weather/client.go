// Package weather fetches current conditions from Open-Meteo and reduces
// them to the readout shown next to the clock.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/mescon/neonclock/internal/clock"
	"github.com/mescon/neonclock/internal/logger"
)

var (
	// ErrNoLocation is returned when no coordinates are configured.
	ErrNoLocation = errors.New("weather location unavailable")
	// ErrBadResponse covers non-2xx statuses and malformed bodies.
	ErrBadResponse = errors.New("weather provider returned an unusable response")
)

// Location is a pair of WGS84 coordinates.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Reading is one successful observation.
type Reading struct {
	Temperature float64   `json:"temperature"`
	WeatherCode int       `json:"weather_code"`
	IsDay       bool      `json:"is_day"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Fetcher is implemented by Client and by test fakes.
type Fetcher interface {
	Fetch(ctx context.Context, loc *Location) (Reading, error)
}

// ClientOptions configures a Client. Zero values take defaults.
type ClientOptions struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimitRPS float64
	Breaker      BreakerConfig
}

// Client talks to the Open-Meteo forecast endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *CircuitBreaker
	clk        clock.Clock
}

// NewClient creates a client. One request may burst through immediately,
// then RateLimitRPS applies.
func NewClient(opts ClientOptions, clocks ...clock.Clock) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.open-meteo.com/v1/forecast"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RateLimitRPS > 0 {
		limit = rate.Limit(opts.RateLimitRPS)
	}
	clk := clock.OrReal(clocks...)
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    NewCircuitBreaker(opts.Breaker, clk),
		clk:        clk,
	}
}

// Breaker exposes the circuit breaker for stats and manual resets.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

type forecastResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		WeatherCode *int     `json:"weather_code"`
		IsDay       *int     `json:"is_day"`
	} `json:"current"`
}

// Fetch returns current conditions at loc in Celsius.
func (c *Client) Fetch(ctx context.Context, loc *Location) (Reading, error) {
	if loc == nil {
		return Reading{}, ErrNoLocation
	}
	if !c.breaker.Allow() {
		return Reading{}, ErrCircuitOpen
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Reading{}, fmt.Errorf("rate limiter: %w", err)
	}

	r, err := c.fetch(ctx, loc)
	if err != nil {
		// a cancelled refresh says nothing about provider health
		if !errors.Is(err, context.Canceled) {
			c.breaker.RecordFailure()
		}
		return Reading{}, err
	}
	c.breaker.RecordSuccess()
	return r, nil
}

func (c *Client) fetch(ctx context.Context, loc *Location) (Reading, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,weather_code,is_day")
	q.Set("temperature_unit", "celsius")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Debugf("Failed to close weather response body: %v", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Reading{}, fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	cur := body.Current
	if cur == nil || cur.Temperature == nil || cur.WeatherCode == nil {
		return Reading{}, fmt.Errorf("%w: missing current conditions", ErrBadResponse)
	}

	r := Reading{
		Temperature: *cur.Temperature,
		WeatherCode: *cur.WeatherCode,
		IsDay:       true,
		FetchedAt:   c.clk.Now(),
	}
	if cur.IsDay != nil {
		r.IsDay = *cur.IsDay == 1
	}
	return r, nil
}
