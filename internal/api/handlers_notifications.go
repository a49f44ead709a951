package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/notifier"
)

// requireNotifier checks if the notifier is available, returning false and sending error if not
func (s *RESTServer) requireNotifier(c *gin.Context) bool {
	if s.notifier == nil {
		respondServiceUnavailable(c, "Notification service")
		return false
	}
	return true
}

func (s *RESTServer) getNotifications(c *gin.Context) {
	if !s.requireNotifier(c) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":   s.notifier.Enabled(),
		"providers": s.notifier.Providers(),
		"events":    notifier.TriggerEvents,
	})
}

// testNotification sends a test message to every configured service.
func (s *RESTServer) testNotification(c *gin.Context) {
	if !s.requireNotifier(c) {
		return
	}

	if err := s.notifier.SendTest(); err != nil {
		if errors.Is(err, notifier.ErrNoURLs) {
			respondBadRequest(c, err, true)
			return
		}
		respondWithError(c, http.StatusBadGateway, "Test notification failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Test notification sent"})
}
