package middleware

import (
	"net/http"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"

	"github.com/gin-gonic/gin"
)

// RouteGuard applies the navigation decision to page requests. It reads only
// the claims carried by the session token.
func RouteGuard(guard authz.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var claims *authz.Claims
		if sess, ok := SessionFrom(c); ok {
			claims = &sess.Claims
		}

		decision := guard.Decide(c.Request.URL.Path, claims)
		if !decision.Allowed() {
			LoggerFrom(c.Request.Context()).Debug("navigation redirected",
				"path", c.Request.URL.Path,
				"target", decision.Redirect)
			c.Redirect(http.StatusFound, decision.Redirect)
			c.Abort()
			return
		}
		c.Next()
	}
}
