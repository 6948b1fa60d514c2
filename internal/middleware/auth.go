package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/service"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/session"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionCookie holds the signed session token.
const SessionCookie = "session"

const sessionKey = "session"

// SetSessionCookie stores the token as an HttpOnly cookie.
// Production (cross-origin): SameSiteNoneMode + Secure=true
// Development (same-site):   SameSiteLaxMode  + Secure=false
func SetSessionCookie(c *gin.Context, token string, maxAge time.Duration, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(SessionCookie, token, int(maxAge.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(sameSite(secure))
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}

func sameSite(secure bool) http.SameSite {
	if secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// tokenFrom reads the cookie first and falls back to the Authorization header.
func tokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Authenticate parses the session token when one is present. It never aborts:
// a missing or invalid token just leaves the request anonymous, and the
// guards downstream decide what that means.
func Authenticate(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFrom(c)
		if token == "" {
			c.Next()
			return
		}

		sess, err := sessions.Parse(token)
		if err != nil {
			LoggerFrom(c.Request.Context()).Debug("ignoring invalid session token", "error", err)
			c.Next()
			return
		}

		c.Set(sessionKey, sess)
		c.Set("userID", sess.ID.String())
		c.Next()
	}
}

// SessionFrom returns the session stored by Authenticate.
func SessionFrom(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok
}

// AbortWithError writes the uniform error body for err and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	resp, internal := response.FromError(err)
	if internal {
		LoggerFrom(c.Request.Context()).Error("request failed", "error", err)
	}
	c.AbortWithStatusJSON(resp.StatusCode, resp)
}

// RequireSession rejects anonymous requests with 401.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := SessionFrom(c); !ok {
			AbortWithError(c, apperr.ErrAuthentication)
			return
		}
		c.Next()
	}
}

// RequirePermission checks the claims embedded in the session. The snapshot
// may be stale; mutations go through RequireAdministrator instead.
func RequirePermission(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			AbortWithError(c, apperr.ErrAuthentication)
			return
		}
		if !sess.Claims.HasAll(perms...) {
			AbortWithError(c, apperr.ErrAuthorization)
			return
		}
		c.Next()
	}
}

// RequireAdministrator re-checks the caller's current roles in the database
// on every request.
func RequireAdministrator(guard service.AdminGuard) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			AbortWithError(c, apperr.ErrAuthentication)
			return
		}
		if err := guard.Authorize(c.Request.Context(), sess.ID); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
