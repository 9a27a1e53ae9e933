package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/auth"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Auth struct {
	users   store.UserRepo
	tokens  *auth.Tokens
	journal *Journal
	log     *zap.Logger
	now     func() time.Time
}

func NewAuth(users store.UserRepo, tokens *auth.Tokens, journal *Journal, log *zap.Logger) *Auth {
	return &Auth{users: users, tokens: tokens, journal: journal, log: log, now: time.Now}
}

// bearer reads the token from Authorization, falling back to the cookie session.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	tok, _ := sessions.Default(c).Get(SessionToken).(string)
	return tok
}

func deny(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// RequireAuth loads the user named by the access token. Every rejection is
// written to the audit log as a security event.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			a.journal.Security(c, models.EventAuthFailed, "No token provided", nil)
			deny(c, http.StatusUnauthorized, "Access denied. No token provided.")
			return
		}

		claims, err := a.tokens.Parse(raw)
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			a.journal.Security(c, models.EventTokenExpired, "Expired token used", nil)
			deny(c, http.StatusUnauthorized, "Token has expired")
			return
		case err != nil:
			a.journal.Security(c, models.EventTokenInvalid, "Invalid token format", nil)
			deny(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := a.users.Get(c.Request.Context(), claims.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			a.journal.Security(c, models.EventAuthFailed, "User not found", nil)
			deny(c, http.StatusUnauthorized, "Token is not valid")
			return
		}
		if err != nil {
			a.log.Error("load current user", zap.Uint("user_id", claims.UserID), zap.Error(err))
			deny(c, apperr.HTTPStatus(err), "Authentication failed")
			return
		}

		if !user.IsActive {
			a.journal.Security(c, models.EventAuthFailed, "Inactive user attempted access", &user.ID)
			deny(c, http.StatusUnauthorized, "Account is deactivated")
			return
		}
		if user.Locked() {
			a.journal.Security(c, models.EventAccountLocked, "Too many failed attempts", &user.ID)
			deny(c, http.StatusLocked, "Account temporarily locked due to suspicious activity")
			return
		}

		now := a.now().UTC()
		user.LastActivity = &now
		user.LastIP = c.ClientIP()
		if err := a.users.Touch(c.Request.Context(), user.ID, now, user.LastIP); err != nil {
			// запрос не валим, активность не критична
			a.log.Warn("update last activity", zap.Uint("user_id", user.ID), zap.Error(err))
		}

		SetUser(c, user)
		c.Next()
	}
}

func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			deny(c, http.StatusUnauthorized, "Access denied")
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			deny(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}
