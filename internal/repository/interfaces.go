package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles platform accounts across all six roles
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	DocumentRepository interface {
		Create(ctx context.Context, doc *model.Document) error
		Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
		ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Document, error)
	}

	// VerificationRepository persists credential applications. Rows are
	// append/update only; nothing is ever deleted (audit trail).
	VerificationRepository interface {
		Create(ctx context.Context, req *model.VerificationRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.VerificationRequest, error)
		Update(ctx context.Context, req *model.VerificationRequest) error
		List(ctx context.Context, filters *model.VerificationFilters) ([]*model.VerificationRequest, error)
		LinkDocuments(ctx context.Context, verificationID uuid.UUID, documentIDs []uuid.UUID) error
		ListDocuments(ctx context.Context, verificationID uuid.UUID) ([]*model.Document, error)
	}

	CredentialRepository interface {
		Create(ctx context.Context, cred *model.Credential) error
		Get(ctx context.Context, id uuid.UUID) (*model.Credential, error)
		GetActiveBySubject(ctx context.Context, subjectID uuid.UUID) (*model.Credential, error)
		List(ctx context.Context, filters *model.CredentialFilters) ([]*model.Credential, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.CredentialStatus) error
		SweepExpired(ctx context.Context, now time.Time) (int64, error)
		ListLedgerHashes(ctx context.Context) ([]string, error)
	}

	RecordRepository interface {
		Create(ctx context.Context, record *model.ClinicalRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.ClinicalRecord, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.ClinicalRecord, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error)
		ListWithPrescriptions(ctx context.Context) ([]*model.ClinicalRecord, error)
		UpdatePharmaStatus(ctx context.Context, id uuid.UUID, status model.PharmaStatus) error
		ListLedgerHashes(ctx context.Context) ([]string, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
	}

	// KeyPairRepository stores one signing key pair per practitioner.
	// The private key column leaves the store only for signing.
	KeyPairRepository interface {
		Store(ctx context.Context, pair *model.KeyPair) error
		Get(ctx context.Context, userID uuid.UUID) (*model.KeyPair, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
	}
)
