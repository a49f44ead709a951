package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/logger"
)

// handleLogin exchanges the configured password for the API key.
func (s *RESTServer) handleLogin(c *gin.Context) {
	if !s.credentials.HasPassword() {
		respondWithError(c, http.StatusNotFound, ErrMsgLoginDisabled, nil)
		return
	}

	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err, false)
		return
	}

	key, ok := s.credentials.Login(req.Password)
	if !ok {
		logger.Warnf("Failed login attempt from %s", c.ClientIP())
		respondWithError(c, http.StatusUnauthorized, ErrMsgInvalidPassword, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": key})
}

func (s *RESTServer) handleAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"auth_required":   s.credentials.Enabled(),
		"login_available": s.credentials.HasPassword(),
	})
}
