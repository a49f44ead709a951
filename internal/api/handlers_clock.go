package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/alarm"
	"github.com/mescon/neonclock/internal/timer"
)

// maxCountdown bounds durations accepted by /timer/reset.
const maxCountdown = 24 * time.Hour

// requireClock checks if the clock service is available, returning false and sending error if not
func (s *RESTServer) requireClock(c *gin.Context) bool {
	if s.clock == nil {
		respondServiceUnavailable(c, "Clock service")
		return false
	}
	return true
}

func (s *RESTServer) getSnapshot(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}
	c.JSON(http.StatusOK, s.clock.Snapshot())
}

// getTime returns the current time, formatted with the display settings
// when they are available.
func (s *RESTServer) getTime(c *gin.Context) {
	now := s.clk.Now()
	if s.clock != nil {
		now = s.clock.Snapshot().CurrentTime
	}

	layout := "15:04:05"
	if s.settings != nil {
		st := s.settings.Get()
		switch {
		case st.Is24Hour && !st.ShowSeconds:
			layout = "15:04"
		case !st.Is24Hour && st.ShowSeconds:
			layout = "3:04:05 PM"
		case !st.Is24Hour:
			layout = "3:04 PM"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"time":      now,
		"unix_ms":   now.UnixMilli(),
		"formatted": now.Format(layout),
		"date":      now.Format("Monday, January 2, 2006"),
		"zone":      now.Location().String(),
	})
}

func (s *RESTServer) getTimer(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}
	c.JSON(http.StatusOK, s.clock.Timer())
}

func (s *RESTServer) startTimer(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}
	c.JSON(http.StatusOK, s.clock.StartTimer())
}

func (s *RESTServer) pauseTimer(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}
	c.JSON(http.StatusOK, s.clock.PauseTimer())
}

// resetTimer accepts an optional body with duration_ms or minutes. An empty
// body keeps the current countdown duration.
func (s *RESTServer) resetTimer(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}

	var req struct {
		DurationMS *int64   `json:"duration_ms"`
		Minutes    *float64 `json:"minutes"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err, false)
			return
		}
	}

	// bounds are checked on the raw values so large inputs cannot overflow
	var duration *time.Duration
	valid := true
	switch {
	case req.DurationMS != nil:
		ms := *req.DurationMS
		valid = ms > 0 && ms <= maxCountdown.Milliseconds()
		d := time.Duration(ms) * time.Millisecond
		duration = &d
	case req.Minutes != nil:
		m := *req.Minutes
		valid = m > 0 && m <= maxCountdown.Minutes()
		d := time.Duration(m * float64(time.Minute))
		duration = &d
	}
	if !valid || (duration != nil && *duration <= 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Duration must be between 1ms and 24h"})
		return
	}

	c.JSON(http.StatusOK, s.clock.ResetTimer(duration))
}

func (s *RESTServer) setTimerMode(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}

	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, false)
		return
	}
	mode, err := timer.ParseMode(req.Mode)
	if err != nil {
		respondBadRequest(c, err, true)
		return
	}

	c.JSON(http.StatusOK, s.clock.SetTimerMode(mode))
}

func (s *RESTServer) getAlarms(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}
	c.JSON(http.StatusOK, s.clock.Alarms())
}

func (s *RESTServer) getActiveAlarm(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}
	ring, ok := s.clock.ActiveAlarm()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"ringing": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ringing": true, "ring": ring})
}

func (s *RESTServer) addAlarm(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}

	var req struct {
		Time  string `json:"time" binding:"required"`
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, false)
		return
	}

	a, err := s.clock.AddAlarm(req.Time, req.Label)
	if err != nil {
		s.respondAlarmError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *RESTServer) toggleAlarm(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}

	a, err := s.clock.ToggleAlarm(c.Param("id"))
	if err != nil {
		s.respondAlarmError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *RESTServer) deleteAlarm(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}

	if _, err := s.clock.DeleteAlarm(c.Param("id")); err != nil {
		s.respondAlarmError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alarm deleted"})
}

// dismissAlarm silences the ringing alarm. Dismissing when nothing rings is
// not an error.
func (s *RESTServer) dismissAlarm(c *gin.Context) {
	if !s.requireClock(c) {
		return
	}

	ring, ok := s.clock.DismissAlarm()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"dismissed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": true, "alarm": ring.Alarm})
}

func (s *RESTServer) respondAlarmError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alarm.ErrInvalidTime):
		respondBadRequest(c, err, true)
	case errors.Is(err, alarm.ErrNotFound):
		respondNotFound(c, "Alarm")
	default:
		respondWithError(c, http.StatusInternalServerError, ErrMsgInternalError, err)
	}
}
