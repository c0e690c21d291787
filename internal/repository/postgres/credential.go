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

type credentialRepository struct {
	BaseRepository
}

func NewCredentialRepository(base BaseRepository) repository.CredentialRepository {
	return &credentialRepository{base}
}

func (r *credentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO credentials (
				id, verification_id, subject_id, ledger_hash,
				issued_at, expires_at, status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		if _, err := tx.ExecContext(ctx, query,
			cred.ID,
			cred.VerificationID,
			cred.SubjectID,
			cred.LedgerHash,
			cred.IssuedAt,
			cred.ExpiresAt,
			cred.Status,
			cred.CreatedAt,
			cred.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create credential: %w", err)
		}

		return r.CreateAuditLog(ctx, tx, cred.SubjectID, "issue", "credential", cred.ID, cred)
	})
}

func (r *credentialRepository) Get(ctx context.Context, id uuid.UUID) (*model.Credential, error) {
	query := `SELECT * FROM credentials WHERE id = $1`
	var cred model.Credential
	if err := r.GetDB().GetContext(ctx, &cred, query, id); err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

func (r *credentialRepository) GetActiveBySubject(ctx context.Context, subjectID uuid.UUID) (*model.Credential, error) {
	query := `
		SELECT * FROM credentials
		WHERE subject_id = $1 AND status = $2
		ORDER BY issued_at DESC
		LIMIT 1
	`
	var cred model.Credential
	if err := r.GetDB().GetContext(ctx, &cred, query, subjectID, model.CredentialActive); err != nil {
		return nil, fmt.Errorf("failed to get active credential: %w", err)
	}
	return &cred, nil
}

func (r *credentialRepository) List(ctx context.Context, filters *model.CredentialFilters) ([]*model.Credential, error) {
	query := `SELECT * FROM credentials WHERE 1=1`
	args := []interface{}{}

	if filters != nil && filters.SubjectID != uuid.Nil {
		query += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filters.SubjectID)
	}
	if filters != nil && filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}

	query += " ORDER BY issued_at DESC"

	var creds []*model.Credential
	if err := r.GetDB().SelectContext(ctx, &creds, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

func (r *credentialRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CredentialStatus) error {
	query := `UPDATE credentials SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.GetDB().ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update credential status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credential not found")
	}
	return nil
}

// SweepExpired flips every active credential past its expiry. Safe to
// run repeatedly; already-expired rows are not matched again.
func (r *credentialRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE credentials
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at < $4
	`
	result, err := r.GetDB().ExecContext(ctx, query,
		model.CredentialExpired, time.Now(), model.CredentialActive, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired credentials: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *credentialRepository) ListLedgerHashes(ctx context.Context) ([]string, error) {
	query := `SELECT ledger_hash FROM credentials`
	var hashes []string
	if err := r.GetDB().SelectContext(ctx, &hashes, query); err != nil {
		return nil, fmt.Errorf("failed to list credential ledger hashes: %w", err)
	}
	return hashes, nil
}
