package verification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/handler"
	"github.com/jwalitptl/credchain-api/internal/middleware"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/service/verification"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

type Handler struct {
	service verification.VerificationService
	logger  *logger.Logger
}

func NewHandler(service verification.VerificationService, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/verifications", auth.RequireRole(model.RolePractitioner), h.Submit)
	r.GET("/verifications", auth.RequireRole(model.RoleOrganization, model.RoleAdmin), h.List)
	r.GET("/verifications/:id", h.Get)
	r.GET("/verifications/:id/documents", auth.RequireRole(model.RoleOrganization, model.RoleAdmin), h.ListDocuments)
	r.POST("/verifications/:id/analyze", auth.RequireRole(model.RoleAdmin), h.Analyze)
	r.POST("/verifications/:id/org-review", auth.RequireRole(model.RoleOrganization), h.OrgReview)
	r.POST("/verifications/:id/admin-review", auth.RequireRole(model.RoleAdmin), h.AdminReview)
}

// Submit opens an application and kicks off scoring in the background.
// A scoring failure parks the application in ai_analysis where an admin
// can re-trigger it.
func (h *Handler) Submit(c *gin.Context) {
	subjectID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req model.SubmitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), subjectID, req.DocumentIDs)
	if err != nil {
		handler.Error(c, err)
		return
	}

	go func() {
		if _, err := h.service.Analyze(context.Background(), result.ID); err != nil {
			h.logger.Error(err, "background analysis failed", "verification_id", result.ID)
		}
	}()

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid verification ID"))
		return
	}

	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.VerificationFilters{
		Status: model.VerificationStatus(c.Query("status")),
	}
	if id := c.Query("subject_id"); id != "" {
		subjectID, err := uuid.Parse(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid subject ID"))
			return
		}
		filters.SubjectID = subjectID
	}

	results, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(results))
}

func (h *Handler) ListDocuments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid verification ID"))
		return
	}

	docs, err := h.service.ListDocuments(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(docs))
}

func (h *Handler) Analyze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid verification ID"))
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) OrgReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid verification ID"))
		return
	}
	reviewerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req model.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, err := h.service.SubmitOrgVerdict(c.Request.Context(), id, req.Verdict, req.Comments, reviewerID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) AdminReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid verification ID"))
		return
	}
	reviewerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid user"))
		return
	}

	var req model.AdminReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	result, credential, err := h.service.SubmitAdminVerdict(
		c.Request.Context(), id, req.Verdict, req.Comments, req.ValidityMonths, reviewerID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"verification": result,
		"credential":   credential,
	}))
}
