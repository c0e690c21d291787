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

type recordRepository struct {
	BaseRepository
}

func NewRecordRepository(base BaseRepository) repository.RecordRepository {
	return &recordRepository{base}
}

func (r *recordRepository) Create(ctx context.Context, record *model.ClinicalRecord) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO clinical_records (
				id, appointment_id, author_id, diagnosis, prescription,
				signature, signature_present, pharma_status, ledger_hash,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err := tx.ExecContext(ctx, query,
			record.ID,
			record.AppointmentID,
			record.AuthorID,
			record.Diagnosis,
			record.Prescription,
			record.Signature,
			record.SignaturePresent,
			record.PharmaStatus,
			record.LedgerHash,
			record.CreatedAt,
			record.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create clinical record: %w", err)
		}

		return r.CreateAuditLog(ctx, tx, record.AuthorID, "create", "clinical_record", record.ID, nil)
	})
}

func (r *recordRepository) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalRecord, error) {
	query := `SELECT * FROM clinical_records WHERE id = $1`
	var record model.ClinicalRecord
	if err := r.GetDB().GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("failed to get clinical record: %w", err)
	}
	return &record, nil
}

func (r *recordRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.ClinicalRecord, error) {
	query := `SELECT * FROM clinical_records WHERE appointment_id = $1`
	var record model.ClinicalRecord
	if err := r.GetDB().GetContext(ctx, &record, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get clinical record by appointment: %w", err)
	}
	return &record, nil
}

func (r *recordRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error) {
	query := `
		SELECT cr.* FROM clinical_records cr
		JOIN appointments a ON cr.appointment_id = a.id
		WHERE a.patient_id = $1
		ORDER BY cr.created_at DESC
	`
	var records []*model.ClinicalRecord
	if err := r.GetDB().SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient records: %w", err)
	}
	return records, nil
}

func (r *recordRepository) ListWithPrescriptions(ctx context.Context) ([]*model.ClinicalRecord, error) {
	query := `
		SELECT * FROM clinical_records
		WHERE prescription <> '' AND pharma_status = $1
		ORDER BY created_at DESC
	`
	var records []*model.ClinicalRecord
	if err := r.GetDB().SelectContext(ctx, &records, query, model.PharmaPending); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return records, nil
}

func (r *recordRepository) UpdatePharmaStatus(ctx context.Context, id uuid.UUID, status model.PharmaStatus) error {
	query := `UPDATE clinical_records SET pharma_status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.GetDB().ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update pharma status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("clinical record not found")
	}
	return nil
}

func (r *recordRepository) ListLedgerHashes(ctx context.Context) ([]string, error) {
	query := `SELECT ledger_hash FROM clinical_records`
	var hashes []string
	if err := r.GetDB().SelectContext(ctx, &hashes, query); err != nil {
		return nil, fmt.Errorf("failed to list record ledger hashes: %w", err)
	}
	return hashes, nil
}
