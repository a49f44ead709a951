package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

// getRecentEvents returns the newest bus events, oldest first.
func (s *RESTServer) getRecentEvents(c *gin.Context) {
	if s.eventBus == nil {
		respondServiceUnavailable(c, "Event bus")
		return
	}
	c.JSON(http.StatusOK, s.eventBus.Recent(parseLimit(c, defaultEventLimit, maxEventLimit)))
}
