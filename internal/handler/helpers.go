package handler

import (
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/middleware"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/session"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body and writes a 422 when it does not fit the DTO.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.AbortWithError(c, apperr.NewValidationError(apperr.FieldError{
			Field:   "body",
			Message: "Invalid request payload: " + err.Error(),
		}))
		return false
	}
	return true
}

// currentSession returns the caller's session or writes a 401.
func currentSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		middleware.AbortWithError(c, apperr.ErrAuthentication)
	}
	return sess, ok
}
