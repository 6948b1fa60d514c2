package handler

import (
	"net/http"

	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/middleware"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/repository"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/internal/service"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/pkg/pagination"
	"github.com/KingSnorlax2/dopravni-system-vondrasek-sub002/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuditHandler struct {
	auditService service.AuditService
	guard        service.AdminGuard
}

func NewAuditHandler(auditService service.AuditService, guard service.AdminGuard) *AuditHandler {
	return &AuditHandler{auditService: auditService, guard: guard}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireAdministrator(h.guard))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs returns role and user changes, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Param        action    query     string  false  "Filter by action, e.g. DELETE_ROLE"
// @Param        actor_id  query     string  false  "Filter by acting user ID"
// @Success      200       {object}  response.Response{data=pagination.Page}
// @Failure      403       {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.AuditFilter{Action: c.Query("action")}
	if raw := c.Query("actor_id"); raw != "" {
		if actorID, err := uuid.Parse(raw); err == nil {
			filter.ActorID = &actorID
		}
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, params.Wrap(logs, total)))
}
