package assistant

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/credchain-api/internal/handler"
	"github.com/jwalitptl/credchain-api/internal/middleware"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/service/assistant"
)

type ConverseRequest struct {
	Query string `json:"query" binding:"required"`
}

type Handler struct {
	service assistant.AssistantService
}

func NewHandler(service assistant.AssistantService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/assistant/chat", auth.RequireRole(model.RolePatient), h.Converse)
}

func (h *Handler) Converse(c *gin.Context) {
	patientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req ConverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	reply, err := h.service.Converse(c.Request.Context(), patientID, req.Query)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"reply": reply}))
}
