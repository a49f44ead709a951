package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/config"
)

// formatUptime returns a human-readable uptime string
func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// handleHealth returns server health status for container orchestration.
// The daemon is degraded when the frame loop is not running; weather
// failures are reported but don't degrade it.
func (s *RESTServer) handleHealth(c *gin.Context) {
	status := "healthy"

	clockHealth := gin.H{"running": false}
	if s.clock != nil {
		running := s.clock.Running()
		clockHealth["running"] = running
		if !running {
			status = "degraded"
		}
		if ring, ok := s.clock.ActiveAlarm(); ok {
			clockHealth["ringing_alarm"] = ring.Alarm.ID
		}
	} else {
		status = "degraded"
	}

	weatherHealth := gin.H{"enabled": false}
	if s.weather != nil {
		st := s.weather.State()
		weatherHealth["enabled"] = s.weather.Enabled()
		weatherHealth["loading"] = st.Loading
		if st.Error != "" {
			weatherHealth["error"] = st.Error
		}
	}

	health := gin.H{
		"status":            status,
		"version":           config.Version,
		"uptime":            formatUptime(s.clk.Now().Sub(s.startTime)),
		"clock":             clockHealth,
		"weather":           weatherHealth,
		"websocket_clients": s.hub.ClientCount(),
	}
	if s.eventBus != nil {
		health["events_dropped"] = s.eventBus.Dropped()
	}

	c.JSON(http.StatusOK, health)
}
