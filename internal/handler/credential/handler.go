package credential

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/handler"
	"github.com/jwalitptl/credchain-api/internal/middleware"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/service/credential"
)

type Handler struct {
	service credential.CredentialService
}

func NewHandler(service credential.CredentialService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes binds the authenticated credential surface.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.GET("/credentials", auth.RequireRole(model.RoleOrganization, model.RoleAdmin), h.List)
	r.GET("/credentials/:id", h.Get)
	r.GET("/subjects/:id/credential", h.GetActiveBySubject)
	r.POST("/credentials/:id/revoke", auth.RequireRole(model.RoleAdmin), h.Revoke)
	r.POST("/ledger/reconcile", auth.RequireRole(model.RoleAdmin), h.Reconcile)
}

// RegisterPublicRoutes binds the endpoints outside the trust boundary.
// The chain carries no clinical text or key material, so anyone may
// check a hash, pull the full export, or run a validation pass.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/verify-credential", h.Verify)
	r.GET("/ledger", h.ExportLedger)
	r.GET("/ledger/validate", h.ValidateLedger)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.CredentialFilters{
		Status: model.CredentialStatus(c.Query("status")),
	}
	if raw := c.Query("subject_id"); raw != "" {
		subjectID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid subject ID"))
			return
		}
		filters.SubjectID = subjectID
	}

	creds, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(creds))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid credential ID"))
		return
	}

	cred, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cred))
}

func (h *Handler) GetActiveBySubject(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid subject ID"))
		return
	}

	cred, err := h.service.GetActiveBySubject(c.Request.Context(), subjectID)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(cred))
}

func (h *Handler) Verify(c *gin.Context) {
	var req model.VerifyCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	resp, err := h.service.VerifyByHash(c.Request.Context(), req.Hash)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(resp))
}

func (h *Handler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid credential ID"))
		return
	}

	if err := h.service.Revoke(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"revoked": true}))
}

func (h *Handler) ExportLedger(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.service.ExportLedger()))
}

func (h *Handler) ValidateLedger(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"valid": h.service.ValidateLedger()}))
}

func (h *Handler) Reconcile(c *gin.Context) {
	orphans, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"orphaned_entries": orphans,
		"clean":            len(orphans) == 0,
	}))
}
