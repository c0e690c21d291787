package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/credchain-api/internal/ledger"
	"github.com/jwalitptl/credchain-api/internal/model"
)

type fakeCredentialService struct {
	verified map[string]*model.VerifyCredentialResponse
}

func (s *fakeCredentialService) Issue(_ context.Context, _ *model.VerificationRequest) (*model.Credential, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeCredentialService) Get(_ context.Context, _ uuid.UUID) (*model.Credential, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeCredentialService) GetActiveBySubject(_ context.Context, _ uuid.UUID) (*model.Credential, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeCredentialService) List(_ context.Context, _ *model.CredentialFilters) ([]*model.Credential, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeCredentialService) VerifyByHash(_ context.Context, hash string) (*model.VerifyCredentialResponse, error) {
	if resp, ok := s.verified[hash]; ok {
		return resp, nil
	}
	return &model.VerifyCredentialResponse{Verified: false}, nil
}

func (s *fakeCredentialService) Revoke(_ context.Context, _ uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *fakeCredentialService) SweepExpired(_ context.Context) (int64, error) { return 0, nil }
func (s *fakeCredentialService) ExportLedger() []*ledger.Block                 { return nil }
func (s *fakeCredentialService) ValidateLedger() bool                          { return true }
func (s *fakeCredentialService) Reconcile(_ context.Context) ([]string, error) { return nil, nil }

func setupRouter(svc *fakeCredentialService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(svc)
	h.RegisterPublicRoutes(engine.Group("/api/v1"))
	return engine
}

func TestVerifyEndpointKnownHash(t *testing.T) {
	svc := &fakeCredentialService{
		verified: map[string]*model.VerifyCredentialResponse{
			"abc123": {
				Verified: true,
				Data:     map[string]interface{}{"name": "Dr. Example", "verified": true},
			},
		},
	}
	engine := setupRouter(svc)

	body, _ := json.Marshal(model.VerifyCredentialRequest{Hash: "abc123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-credential", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string                          `json:"status"`
		Data   *model.VerifyCredentialResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.True(t, resp.Data.Verified)
	assert.Equal(t, "Dr. Example", resp.Data.Data["name"])
}

func TestVerifyEndpointUnknownHash(t *testing.T) {
	engine := setupRouter(&fakeCredentialService{})

	body, _ := json.Marshal(model.VerifyCredentialRequest{Hash: "deadbeef"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-credential", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data *model.VerifyCredentialResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Verified)
}

func TestVerifyEndpointRequiresHash(t *testing.T) {
	engine := setupRouter(&fakeCredentialService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify-credential", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
