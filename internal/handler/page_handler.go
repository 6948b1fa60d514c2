package handler

import (
	"net/http"
	"strings"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/apperr"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/authz"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/middleware"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/navigation"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

// PageHandler answers dashboard page requests that no API route claimed.
type PageHandler struct {
	guard authz.Guard
	menu  *navigation.Menu
}

// PageResponse describes the page the client may render.
type PageResponse struct {
	Path          string               `json:"path"`
	Authenticated bool                 `json:"authenticated"`
	Sections      []navigation.Section `json:"sections"`
}

func NewPageHandler(guard authz.Guard, menu *navigation.Menu) *PageHandler {
	return &PageHandler{guard: guard, menu: menu}
}

// RegisterRoutes installs the page guard as the engine's fallback.
func (h *PageHandler) RegisterRoutes(engine *gin.Engine) {
	engine.NoRoute(apiNotFound, middleware.RouteGuard(h.guard), h.ServePage)
}

// apiNotFound keeps unknown API calls and non-GET requests out of the page
// guard.
func apiNotFound(c *gin.Context) {
	path := c.Request.URL.Path
	if c.Request.Method != http.MethodGet || path == "/api" || strings.HasPrefix(path, "/api/") {
		middleware.AbortWithError(c, apperr.ErrNotFound)
		return
	}
	c.Next()
}

// ServePage runs after the guard let the request through.
func (h *PageHandler) ServePage(c *gin.Context) {
	page := PageResponse{
		Path:     authz.Normalize(c.Request.URL.Path),
		Sections: []navigation.Section{},
	}
	if sess, ok := middleware.SessionFrom(c); ok {
		page.Authenticated = true
		page.Sections = h.menu.For(sess.Claims)
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}
