package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/credchain-api/internal/middleware"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/pkg/auth"
)

type fakeAuditService struct {
	logs        []*model.AuditLog
	lastFilters map[string]interface{}
}

func (s *fakeAuditService) List(_ context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	s.lastFilters = filters
	return s.logs, nil
}

type fakeValidator struct {
	role model.Role
}

func (v *fakeValidator) ValidateToken(string) (*auth.Claims, error) {
	return &auth.Claims{UserID: uuid.New(), Email: "someone@example.com", Role: v.role}, nil
}

func setupRouter(svc *fakeAuditService, role model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	mw := middleware.NewAuthMiddleware(&fakeValidator{role: role})
	group := engine.Group("/api/v1")
	group.Use(mw.Authenticate())
	NewHandler(svc).RegisterRoutes(group, mw)
	return engine
}

func doRequest(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestListAuditLogsAsAdmin(t *testing.T) {
	userID := uuid.New()
	svc := &fakeAuditService{logs: []*model.AuditLog{{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     "credential.revoke",
		EntityType: "credential",
		EntityID:   uuid.New(),
		CreatedAt:  time.Now(),
	}}}
	engine := setupRouter(svc, model.RoleAdmin)

	w := doRequest(engine, "/api/v1/audit-logs?user_id="+userID.String()+"&action=credential.revoke")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, svc.lastFilters["user_id"])
	assert.Equal(t, "credential.revoke", svc.lastFilters["action"])

	var resp struct {
		Status string            `json:"status"`
		Data   []*model.AuditLog `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "credential.revoke", resp.Data[0].Action)
}

func TestListAuditLogsByEntity(t *testing.T) {
	entityID := uuid.New()
	svc := &fakeAuditService{}
	engine := setupRouter(svc, model.RoleAdmin)

	w := doRequest(engine, "/api/v1/audit-logs/entity/credential/"+entityID.String())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "credential", svc.lastFilters["entity_type"])
	assert.Equal(t, entityID, svc.lastFilters["entity_id"])
}

func TestListAuditLogsRejectsBadUserID(t *testing.T) {
	engine := setupRouter(&fakeAuditService{}, model.RoleAdmin)

	w := doRequest(engine, "/api/v1/audit-logs?user_id=not-a-uuid")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAuditLogsForbiddenForNonAdmin(t *testing.T) {
	engine := setupRouter(&fakeAuditService{}, model.RoleHospital)

	w := doRequest(engine, "/api/v1/audit-logs")

	assert.Equal(t, http.StatusForbidden, w.Code)
}
