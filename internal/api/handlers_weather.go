package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/services"
	"github.com/mescon/neonclock/internal/weather"
)

// weatherRefreshTimeout bounds a manual refresh, including any wait on the
// upstream rate limiter.
const weatherRefreshTimeout = 15 * time.Second

func (s *RESTServer) getWeather(c *gin.Context) {
	if s.weather == nil {
		respondServiceUnavailable(c, "Weather service")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": s.weather.Enabled(),
		"state":   s.weather.State(),
	})
}

// refreshWeather fetches now. Upstream failures still return 200 with the
// degraded readout, so clients render the same state the push would carry.
func (s *RESTServer) refreshWeather(c *gin.Context) {
	if s.weather == nil {
		respondServiceUnavailable(c, "Weather service")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), weatherRefreshTimeout)
	defer cancel()

	st, err := s.weather.Refresh(ctx)
	switch {
	case errors.Is(err, services.ErrWeatherDisabled):
		c.JSON(http.StatusConflict, gin.H{"error": "Weather is disabled in settings"})
		return
	case errors.Is(err, weather.ErrCircuitOpen):
		c.Header("Retry-After", "60")
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "state": st})
}
