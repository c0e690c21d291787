package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// DocumentService registers uploaded credential documents. The bytes
// live in external storage; only metadata is kept here.
type DocumentService interface {
	Register(ctx context.Context, userID uuid.UUID, req *model.RegisterDocumentRequest) (*model.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Document, error)
}

type Service struct {
	repo   repository.DocumentRepository
	logger *logger.Logger
}

func NewService(repo repository.DocumentRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

func (s *Service) Register(ctx context.Context, userID uuid.UUID, req *model.RegisterDocumentRequest) (*model.Document, error) {
	now := time.Now()
	doc := &model.Document{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:       userID,
		Filename:     req.Filename,
		Filepath:     req.Filepath,
		DocumentType: req.DocumentType,
		FileSize:     req.FileSize,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	s.logger.Info("document registered", "document_id", doc.ID, "user_id", userID, "type", req.DocumentType)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("document", err)
	}
	return doc, nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Document, error) {
	return s.repo.ListByUser(ctx, userID)
}
