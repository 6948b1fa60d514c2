package handler

import (
	"net/http"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/middleware"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/navigation"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/service"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService  service.AuthService
	userService  service.UserService
	menu         *navigation.Menu
	secureCookie bool
}

// LoginResponse is returned by /login and /refresh.
type LoginResponse struct {
	Token string             `json:"token"`
	Me    service.MeResponse `json:"me"`
}

// NavigationResponse is the menu the caller may see.
type NavigationResponse struct {
	Sections           []navigation.Section `json:"sections"`
	DefaultLandingPage string               `json:"default_landing_page"`
}

func NewAuthHandler(authService service.AuthService, userService service.UserService, menu *navigation.Menu, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		userService:  userService,
		menu:         menu,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)

	authed := router.Group("", middleware.RequireSession())
	{
		authed.POST("/refresh", h.Refresh)
		authed.GET("/me", h.GetMe)
		authed.GET("/api/navigation", h.GetNavigation)
		authed.GET("/api/me/preferences", h.GetPreferences)
		authed.PUT("/api/me/preferences", h.UpdatePreferences)
	}
}

// Login handles POST /login to authenticate and issue a session token
// @Summary      Login
// @Description  Verifies credentials, resolves the caller's claims once and returns them inside a signed session token (also set as HttpOnly cookie)
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Login Credentials"
// @Success      200      {object}  response.Response{data=LoginResponse}
// @Failure      401      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	middleware.SetSessionCookie(c, result.Token, result.Session.ExpiresAt.Sub(result.Session.IssuedAt), h.secureCookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, LoginResponse{
		Token: result.Token,
		Me:    h.authService.Me(result.Session),
	}))
}

// Logout handles POST /logout to clear the session cookie
// @Summary      Logout
// @Description  Clears the session cookie. Issued tokens stay valid until they expire.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.secureCookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Logged out"))
}

// Refresh handles POST /refresh to re-resolve claims from the current roles
// @Summary      Refresh session
// @Description  Issues a new session token whose claims reflect the current role registry
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=LoginResponse}
// @Failure      401  {object}  response.Response
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), sess)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}

	middleware.SetSessionCookie(c, result.Token, result.Session.ExpiresAt.Sub(result.Session.IssuedAt), h.secureCookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, LoginResponse{
		Token: result.Token,
		Me:    h.authService.Me(result.Session),
	}))
}

// GetMe handles GET /me
// @Summary      Get current session
// @Description  Returns the identity and the claims snapshot carried by the session token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Failure      401  {object}  response.Response
// @Router       /me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.authService.Me(sess)))
}

// GetNavigation handles GET /api/navigation
// @Summary      Get navigation menu
// @Description  Returns the static menu filtered by the session's allowed pages
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=NavigationResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/navigation [get]
func (h *AuthHandler) GetNavigation(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, NavigationResponse{
		Sections:           h.menu.For(sess.Claims),
		DefaultLandingPage: sess.Claims.DefaultLandingPage(),
	}))
}

// GetPreferences handles GET /api/me/preferences
// @Summary      Get my preferences
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.PreferenceResponse}
// @Failure      401  {object}  response.Response
// @Router       /api/me/preferences [get]
func (h *AuthHandler) GetPreferences(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	pref, err := h.userService.GetPreference(c.Request.Context(), sess.ID)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pref))
}

// UpdatePreferences handles PUT /api/me/preferences
// @Summary      Update my preferences
// @Description  Stores display settings and a landing page override. The override applies from the next login or refresh.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.UpdatePreferenceRequest  true  "Preferences"
// @Success      200      {object}  response.Response{data=service.PreferenceResponse}
// @Failure      401      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/me/preferences [put]
func (h *AuthHandler) UpdatePreferences(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	var req service.UpdatePreferenceRequest
	if !bindJSON(c, &req) {
		return
	}

	pref, err := h.userService.UpdatePreference(c.Request.Context(), sess.ID, req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pref))
}
