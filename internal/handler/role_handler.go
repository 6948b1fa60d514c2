package handler

import (
	"net/http"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/middleware"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/model"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/service"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	roleService service.RoleService
	guard       service.AdminGuard
}

func NewRoleHandler(roleService service.RoleService, guard service.AdminGuard) *RoleHandler {
	return &RoleHandler{roleService: roleService, guard: guard}
}

// RegisterRoutes serves registry reads from the session snapshot's
// manage_roles grant; writes re-check the caller in the database.
func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	read := router.Group("/api", middleware.RequirePermission(model.PermManageRoles))
	{
		read.GET("/roles", h.ListRoles)
		read.GET("/roles/:id", h.GetRole)
		read.GET("/permissions", h.ListPermissions)
	}

	write := router.Group("/api", middleware.RequireAdministrator(h.guard))
	{
		write.POST("/roles", h.CreateRole)
		write.PUT("/roles/:id", h.UpdateRole)
		write.PUT("/roles/:id/permissions", h.UpdateRolePermissions)
		write.DELETE("/roles/:id", h.DeleteRole)
	}
}

// ListRoles returns all roles with their permissions
// @Summary      List roles
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        active  query     bool  false  "Only active roles"
// @Success      200     {object}  response.Response{data=[]service.RoleResponse}
// @Failure      401     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /api/roles [get]
func (h *RoleHandler) ListRoles(c *gin.Context) {
	list := h.roleService.ListRoles
	if c.Query("active") == "true" {
		list = h.roleService.ListActiveRoles
	}

	roles, err := list(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, roles))
}

// GetRole returns a single role by ID
// @Summary      Get role
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response{data=service.RoleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/roles/{id} [get]
func (h *RoleHandler) GetRole(c *gin.Context) {
	role, err := h.roleService.GetRoleByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// CreateRole creates a new role with permissions and navigation grants
// @Summary      Create role
// @Description  Unknown permission keys or page patterns reject the whole request
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRoleRequest  true  "Role"
// @Success      201      {object}  response.Response{data=service.RoleResponse}
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/roles [post]
func (h *RoleHandler) CreateRole(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req service.CreateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.CreateRole(c.Request.Context(), sess.ID, req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, role))
}

// UpdateRole replaces a role's definition
// @Summary      Update role
// @Description  Updates fields and, when given, the permission set in one transaction. Live sessions keep their claims until refreshed.
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Role ID"
// @Param        payload  body      service.UpdateRoleRequest  true  "Role"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/roles/{id} [put]
func (h *RoleHandler) UpdateRole(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req service.UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.UpdateRole(c.Request.Context(), sess.ID, c.Param("id"), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// UpdateRolePermissions replaces a role's permission set
// @Summary      Replace role permissions
// @Tags         roles
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                                true  "Role ID"
// @Param        payload  body      service.UpdateRolePermissionsRequest  true  "Permission keys"
// @Success      200      {object}  response.Response{data=service.RoleResponse}
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/roles/{id}/permissions [put]
func (h *RoleHandler) UpdateRolePermissions(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	var req service.UpdateRolePermissionsRequest
	if !bindJSON(c, &req) {
		return
	}

	role, err := h.roleService.UpdateRolePermissions(c.Request.Context(), sess.ID, c.Param("id"), req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, role))
}

// DeleteRole deletes an unassigned role
// @Summary      Delete role
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Role ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/roles/{id} [delete]
func (h *RoleHandler) DeleteRole(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	if err := h.roleService.DeleteRole(c.Request.Context(), sess.ID, c.Param("id")); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Role deleted successfully"))
}

// ListPermissions returns the fixed permission vocabulary
// @Summary      List permission keys
// @Tags         roles
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Router       /api/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, h.roleService.ListPermissionKeys()))
}
