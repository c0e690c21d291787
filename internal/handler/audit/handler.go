package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/handler"
	"github.com/jwalitptl/credchain-api/internal/middleware"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/service/audit"
)

type Handler struct {
	service audit.AuditService
}

func NewHandler(service audit.AuditService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes binds the audit trail read surface. Admin only: the
// trail names users and entities across every role.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.GET("/audit-logs", auth.RequireRole(model.RoleAdmin), h.List)
	r.GET("/audit-logs/entity/:type/:id", auth.RequireRole(model.RoleAdmin), h.ListByEntity)
}

func (h *Handler) List(c *gin.Context) {
	filters := make(map[string]interface{})
	if raw := c.Query("user_id"); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
			return
		}
		filters["user_id"] = userID
	}
	if action := c.Query("action"); action != "" {
		filters["action"] = action
	}
	if entityType := c.Query("entity_type"); entityType != "" {
		filters["entity_type"] = entityType
	}

	logs, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}

func (h *Handler) ListByEntity(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entity ID"))
		return
	}

	logs, err := h.service.List(c.Request.Context(), map[string]interface{}{
		"entity_type": c.Param("type"),
		"entity_id":   entityID,
	})
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}
