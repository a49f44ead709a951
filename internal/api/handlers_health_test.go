package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		uptime time.Duration
		want   string
	}{
		{30 * time.Second, "0m"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{49*time.Hour + 3*time.Minute, "2d 1h 3m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUptime(tt.uptime))
		})
	}
}

func TestHandleHealth_DegradedUntilClockRuns(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])

	ts.clock.Start()
	ts.clk.SetNow(testStart.Add(3*time.Hour + 5*time.Minute))

	body = decode(t, ts.do(http.MethodGet, "/api/health", nil))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "3h 5m", body["uptime"])
	assert.Equal(t, float64(0), body["websocket_clients"])
	assert.Contains(t, body, "events_dropped")

	clk := body["clock"].(map[string]interface{})
	assert.Equal(t, true, clk["running"])

	wx := body["weather"].(map[string]interface{})
	assert.Equal(t, false, wx["enabled"])
}

func TestHandleHealth_ReportsWeatherError(t *testing.T) {
	ts := newTestServer(t)
	ts.fetcher.err = assert.AnError

	require.NoError(t, ts.weather.SetEnabled(true))
	ts.do(http.MethodPost, "/api/weather/refresh", nil)

	body := decode(t, ts.do(http.MethodGet, "/api/health", nil))
	wx := body["weather"].(map[string]interface{})
	assert.Equal(t, true, wx["enabled"])
	assert.Equal(t, "Data Unavailable", wx["error"])
}
