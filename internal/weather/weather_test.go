package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/neonclock/internal/testutil"
)

var berlin = &Location{Latitude: 52.52, Longitude: 13.41}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *testutil.MockClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clk := testutil.NewMockClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	return NewClient(ClientOptions{BaseURL: srv.URL, Timeout: 2 * time.Second}, clk), clk
}

func TestFetch_ParsesCurrentConditions(t *testing.T) {
	var gotQuery map[string]string
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":18.4,"weather_code":61,"is_day":0}}`))
	})

	r, err := c.Fetch(context.Background(), berlin)
	require.NoError(t, err)

	assert.Equal(t, 18.4, r.Temperature)
	assert.Equal(t, 61, r.WeatherCode)
	assert.False(t, r.IsDay)
	assert.Equal(t, clk.Now(), r.FetchedAt)

	assert.Equal(t, "52.52", gotQuery["latitude"])
	assert.Equal(t, "13.41", gotQuery["longitude"])
	assert.Equal(t, "temperature_2m,weather_code,is_day", gotQuery["current"])
	assert.Equal(t, "celsius", gotQuery["temperature_unit"])
}

func TestFetch_NoLocation(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoLocation)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, CircuitClosed, c.Breaker().State(), "missing location is not a provider failure")
}

func TestFetch_BadResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `oops`},
		{"not json", http.StatusOK, `<html>`},
		{"missing current", http.StatusOK, `{}`},
		{"missing temperature", http.StatusOK, `{"current":{"weather_code":1,"is_day":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Fetch(context.Background(), berlin)
			assert.ErrorIs(t, err, ErrBadResponse)
			assert.Equal(t, int64(1), c.Breaker().Stats().TotalFailures)
		})
	}
}

func TestFetch_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	var calls int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"current": map[string]any{"temperature_2m": 1.5, "weather_code": 0, "is_day": 1},
		})
	})

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), berlin)
		require.Error(t, err)
	}
	assert.Equal(t, CircuitOpen, c.Breaker().State())

	_, err := c.Fetch(context.Background(), berlin)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "open circuit sends nothing")

	clk.Advance(DefaultBreakerConfig().ResetTimeout)

	r, err := c.Fetch(context.Background(), berlin)
	require.NoError(t, err)
	assert.Equal(t, 1.5, r.Temperature)
	assert.Equal(t, CircuitClosed, c.Breaker().State())
}

func TestFetch_CancelledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, berlin)
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, c.Breaker().State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	clk := testutil.NewMockClock()
	cb := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute, SuccessThreshold: 2}, clk)

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())
	assert.False(t, cb.Allow())

	clk.Advance(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, CircuitHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, CircuitHalfOpen, cb.State(), "needs two successes")
	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.State())

	stats := cb.Stats()
	assert.Equal(t, "open", stats.State)
	assert.Equal(t, int64(1), stats.TotalRejected)
	assert.Equal(t, int64(2), stats.TotalFailures)

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Clear Sky", Describe(0))
	assert.Equal(t, "Depositing Rime Fog", Describe(48))
	assert.Equal(t, "Mod. Rain", Describe(63))
	assert.Equal(t, "Thunderstorm", Describe(95))
	assert.Equal(t, "Unknown", Describe(96))
	assert.Equal(t, "Unknown", Describe(-1))
}

func TestIcon(t *testing.T) {
	tests := []struct {
		code  int
		isDay bool
		want  string
	}{
		{0, true, IconSun},
		{0, false, IconMoon},
		{2, true, IconCloud},
		{3, false, IconMoon},
		{45, true, IconFog},
		{53, true, IconDrizzle},
		{65, true, IconRain},
		{81, false, IconRain},
		{73, true, IconSnow},
		{86, true, IconSnow},
		{99, true, IconThunder},
		{4, true, IconUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Icon(tt.code, tt.isDay), "code %d day=%v", tt.code, tt.isDay)
	}
}

func TestStates(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	l := Loading()
	assert.True(t, l.Loading)
	assert.Nil(t, l.Temperature)

	s := FromReading(Reading{Temperature: -3, WeatherCode: 71, IsDay: true, FetchedAt: at})
	require.NotNil(t, s.Temperature)
	assert.Equal(t, -3.0, *s.Temperature)
	assert.Equal(t, 71, *s.WeatherCode)
	assert.Equal(t, "Slight Snow", s.Description)
	assert.Equal(t, IconSnow, s.Icon)
	assert.Empty(t, s.Error)
	assert.False(t, s.Loading)

	d := Degraded(errors.New("dial tcp: connection refused"), at)
	assert.Equal(t, MsgDataUnavailable, d.Error)
	assert.Nil(t, d.Temperature)
	assert.Nil(t, d.WeatherCode)
	assert.False(t, d.Loading)

	nl := Degraded(ErrNoLocation, at)
	assert.Equal(t, MsgLocationUnavailable, nl.Error)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"temperature":null`)
	assert.Contains(t, string(raw), `"weather_code":null`)
	assert.Contains(t, string(raw), `"error":"Data Unavailable"`)
}
