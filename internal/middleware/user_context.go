package middleware

import (
	"grc-isms/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	currentUserKey = "CurrentUser"
	requestIDKey   = "RequestID"

	// SessionToken is the session key holding a browser client's JWT
	SessionToken = "token"
)

// SetUser stores the user loaded by Auth in the request context.
func SetUser(c *gin.Context, u *models.User) {
	c.Set(currentUserKey, u)
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
