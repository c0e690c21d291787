package audit

import (
	"context"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
)

// AuditService serves the audit trail. Entries are written inside the
// same transaction as the state change they describe (see
// BaseRepository.CreateAuditLog); this service is the read side.
type AuditService interface {
	List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
}

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, filters)
}
