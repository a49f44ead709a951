package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/logger"
)

// Standard error messages (don't leak internal details)
const (
	ErrMsgInvalidRequest  = "Invalid request"
	ErrMsgInternalError   = "Internal server error"
	ErrMsgNoToken         = "No authentication token provided"
	ErrMsgInvalidToken    = "Invalid authentication token"
	ErrMsgInvalidPassword = "Invalid password"
	ErrMsgLoginDisabled   = "Login is not configured"
)

// respondWithError sends a JSON error response and logs the actual error
func respondWithError(c *gin.Context, status int, publicMsg string, err error) {
	if err != nil {
		logger.Debugf("%s: %v", publicMsg, err)
	}
	c.JSON(status, gin.H{"error": publicMsg})
}

// respondBadRequest handles bad request errors, optionally exposing the error message
// Use exposeError=true only for validation errors safe to show users
func respondBadRequest(c *gin.Context, err error, exposeError bool) {
	if exposeError && err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	respondWithError(c, http.StatusBadRequest, ErrMsgInvalidRequest, err)
}

// respondNotFound handles not found errors
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
}

// respondServiceUnavailable handles service unavailable errors
func respondServiceUnavailable(c *gin.Context, service string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": service + " not available"})
}
