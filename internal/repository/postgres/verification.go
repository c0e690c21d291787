package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
)

type verificationRepository struct {
	BaseRepository
}

func NewVerificationRepository(base BaseRepository) repository.VerificationRepository {
	return &verificationRepository{base}
}

func (r *verificationRepository) Create(ctx context.Context, req *model.VerificationRequest) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO verifications (
				id, subject_id, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query,
			req.ID,
			req.SubjectID,
			req.Status,
			req.CreatedAt,
			req.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create verification: %w", err)
		}

		return r.CreateAuditLog(ctx, tx, req.SubjectID, "create", "verification", req.ID, req)
	})
}

func (r *verificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.VerificationRequest, error) {
	query := `SELECT * FROM verifications WHERE id = $1`
	var req model.VerificationRequest
	if err := r.GetDB().GetContext(ctx, &req, query, id); err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	return &req, nil
}

// Update persists the full review state. Transition legality is owned
// by the verification service, which serializes writes per application.
func (r *verificationRepository) Update(ctx context.Context, req *model.VerificationRequest) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		req.UpdatedAt = time.Now()

		query := `
			UPDATE verifications SET
				status = $1,
				ai_score = $2,
				ai_analysis = $3,
				org_verdict = $4,
				org_comments = $5,
				org_reviewer_id = $6,
				org_reviewed_at = $7,
				admin_verdict = $8,
				admin_comments = $9,
				admin_reviewer_id = $10,
				admin_reviewed_at = $11,
				validity_months = $12,
				updated_at = $13
			WHERE id = $14
		`
		result, err := tx.ExecContext(ctx, query,
			req.Status,
			req.AIScore,
			req.AIAnalysis,
			req.OrgVerdict,
			req.OrgComments,
			req.OrgReviewerID,
			req.OrgReviewedAt,
			req.AdminVerdict,
			req.AdminComments,
			req.AdminReviewerID,
			req.AdminReviewedAt,
			req.ValidityMonths,
			req.UpdatedAt,
			req.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update verification: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("verification not found")
		}

		return r.CreateAuditLog(ctx, tx, req.SubjectID, "update", "verification", req.ID, req)
	})
}

func (r *verificationRepository) List(ctx context.Context, filters *model.VerificationFilters) ([]*model.VerificationRequest, error) {
	query := `SELECT * FROM verifications WHERE 1=1`
	args := []interface{}{}

	if filters != nil && filters.SubjectID != uuid.Nil {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filters.SubjectID)
	}
	if filters != nil && filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}

	query += " ORDER BY created_at DESC"

	var reqs []*model.VerificationRequest
	if err := r.GetDB().SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return reqs, nil
}

func (r *verificationRepository) LinkDocuments(ctx context.Context, verificationID uuid.UUID, documentIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO verification_documents (verification_id, document_id)
			VALUES ($1, $2)
		`
		for _, docID := range documentIDs {
			if _, err := tx.ExecContext(ctx, query, verificationID, docID); err != nil {
				return fmt.Errorf("failed to link document: %w", err)
			}
		}
		return nil
	})
}

func (r *verificationRepository) ListDocuments(ctx context.Context, verificationID uuid.UUID) ([]*model.Document, error) {
	query := `
		SELECT d.* FROM documents d
		JOIN verification_documents vd ON d.id = vd.document_id
		WHERE vd.verification_id = $1
	`
	var docs []*model.Document
	if err := r.GetDB().SelectContext(ctx, &docs, query, verificationID); err != nil {
		return nil, fmt.Errorf("failed to list verification documents: %w", err)
	}
	return docs, nil
}
