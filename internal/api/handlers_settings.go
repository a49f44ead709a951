package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mescon/neonclock/internal/settings"
)

func (s *RESTServer) getSettings(c *gin.Context) {
	if s.settings == nil {
		respondServiceUnavailable(c, "Settings service")
		return
	}
	c.JSON(http.StatusOK, s.settings.Get())
}

// updateSettings applies a partial update; omitted fields keep their values.
func (s *RESTServer) updateSettings(c *gin.Context) {
	if s.settings == nil {
		respondServiceUnavailable(c, "Settings service")
		return
	}

	var patch settings.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, err, false)
		return
	}

	updated, err := s.settings.Update(patch)
	if err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			respondBadRequest(c, err, true)
			return
		}
		respondWithError(c, http.StatusInternalServerError, ErrMsgInternalError, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
