package record

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/keys"
	"github.com/jwalitptl/credchain-api/internal/ledger"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/event"
	"github.com/jwalitptl/credchain-api/pkg/logger"
	"github.com/jwalitptl/credchain-api/pkg/metrics"
)

// Publisher enqueues domain events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, t event.Type, payload interface{}) error
}

// VerificationResult is the outcome of checking a stored record against
// its signature and its ledger anchor.
type VerificationResult struct {
	SignaturePresent bool `json:"signature_present"`
	SignatureValid   bool `json:"signature_valid"`
	Anchored         bool `json:"anchored"`
	DigestMatch      bool `json:"digest_match"`
}

// RecordService writes signed clinical visit outcomes and anchors their
// digests on the ledger.
type RecordService interface {
	Create(ctx context.Context, appointmentID, authorID uuid.UUID, diagnosis, prescription string) (*model.ClinicalRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*model.ClinicalRecord, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.ClinicalRecord, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error)
	ListWithPrescriptions(ctx context.Context) ([]*model.ClinicalRecord, error)
	Verify(ctx context.Context, id uuid.UUID) (*VerificationResult, error)
	Dispense(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo         repository.RecordRepository
	appointments repository.AppointmentRepository
	keypairs     repository.KeyPairRepository
	signer       *keys.Service
	chain        *ledger.Chain
	events       Publisher
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	repo repository.RecordRepository,
	appointments repository.AppointmentRepository,
	keypairs repository.KeyPairRepository,
	signer *keys.Service,
	chain *ledger.Chain,
	events Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:         repo,
		appointments: appointments,
		keypairs:     keypairs,
		signer:       signer,
		chain:        chain,
		events:       events,
		logger:       log,
		metrics:      m,
	}
}

// Create writes the visit outcome for a scheduled appointment, signs it
// with the author's key and anchors the content digest on the ledger.
// A missing key pair degrades to an unsigned record that is anchored
// with signature_present=false; a fake signature is never fabricated.
// The clinical text itself stays off the chain.
func (s *Service) Create(ctx context.Context, appointmentID, authorID uuid.UUID, diagnosis, prescription string) (*model.ClinicalRecord, error) {
	if diagnosis == "" {
		return nil, apperrors.NewBadRequest("diagnosis is required", nil)
	}

	appointment, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	if appointment.Status != model.AppointmentScheduled {
		return nil, apperrors.NewConflict(fmt.Sprintf("appointment is %s", appointment.Status), nil)
	}
	if existing, err := s.repo.GetByAppointment(ctx, appointmentID); err == nil && existing != nil {
		return nil, apperrors.NewConflict("appointment already has a record", nil)
	}

	now := time.Now()
	rec := &model.ClinicalRecord{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		AppointmentID: appointmentID,
		AuthorID:      authorID,
		Diagnosis:     diagnosis,
		Prescription:  prescription,
		PharmaStatus:  model.PharmaPending,
	}

	pair, err := s.keypairs.Get(ctx, authorID)
	switch {
	case err == nil:
		signature, err := s.signer.Sign(pair.PrivateKey, rec.Content())
		if err != nil {
			return nil, fmt.Errorf("failed to sign record: %w", err)
		}
		rec.Signature = signature
		rec.SignaturePresent = true
	case errors.Is(err, apperrors.ErrKeyPairNotFound):
		s.logger.Warn("anchoring unsigned record, author has no key pair",
			"appointment_id", appointmentID, "author_id", authorID)
	default:
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}

	if !s.chain.Validate() {
		return nil, apperrors.ErrChainTampered
	}

	digest := sha256.Sum256(rec.Content())
	block, err := s.chain.Append(ledger.RecordAnchorPayload{
		VisitID:          appointmentID,
		AuthorID:         authorID,
		ContentDigest:    hex.EncodeToString(digest[:]),
		SignaturePresent: rec.SignaturePresent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to anchor record: %w", err)
	}
	rec.LedgerHash = block.Hash

	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error(apperrors.ErrOrphanedLedgerEntry, "record row insert failed after ledger append",
			"ledger_hash", block.Hash, "appointment_id", appointmentID)
		if s.metrics != nil {
			s.metrics.OrphanedEntries.Inc()
		}
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}

	if err := s.appointments.UpdateStatus(ctx, appointmentID, model.AppointmentCompleted); err != nil {
		s.logger.Error(err, "failed to complete appointment", "appointment_id", appointmentID)
	}

	s.publish(ctx, event.TypeRecordAnchored, rec)
	s.logger.Info("clinical record anchored",
		"record_id", rec.ID, "appointment_id", appointmentID, "signed", rec.SignaturePresent, "ledger_hash", block.Hash)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ClinicalRecord, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("record", err)
	}
	return rec, nil
}

func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.ClinicalRecord, error) {
	rec, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, apperrors.NewNotFound("record", err)
	}
	return rec, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListWithPrescriptions(ctx context.Context) ([]*model.ClinicalRecord, error) {
	return s.repo.ListWithPrescriptions(ctx)
}

// Verify re-checks a stored record three ways: the author's signature
// over the current content, the anchor block naming this visit and
// author, and the anchored digest against a fresh digest of the
// content. Any mismatch means the row was altered after anchoring.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*VerificationResult, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("record", err)
	}

	result := &VerificationResult{SignaturePresent: rec.SignaturePresent}

	if rec.SignaturePresent {
		pair, err := s.keypairs.Get(ctx, rec.AuthorID)
		if err == nil {
			result.SignatureValid = s.signer.Verify(pair.PublicKey, rec.Content(), rec.Signature)
		}
	}

	block, found := s.chain.FindByHash(rec.LedgerHash)
	if found && block.Payload.Type() == ledger.PayloadRecordAnchor {
		fields := block.Payload.Fields()
		// a block that names a different visit or author is not this
		// record's anchor, however the row points at it
		result.Anchored = fields["visit_id"] == rec.AppointmentID.String() &&
			fields["author_id"] == rec.AuthorID.String()
		if result.Anchored {
			digest := sha256.Sum256(rec.Content())
			result.DigestMatch = fields["content_digest"] == hex.EncodeToString(digest[:])
		}
	}

	if rec.SignaturePresent && !result.SignatureValid {
		s.logger.Error(apperrors.ErrSignatureInvalid, "record signature check failed", "record_id", id)
	}
	return result, nil
}

// Dispense marks a prescription as handed out by the pharmacy.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NewNotFound("record", err)
	}
	if rec.Prescription == "" {
		return apperrors.NewBadRequest("record has no prescription", nil)
	}
	if rec.PharmaStatus != model.PharmaPending {
		return apperrors.NewConflict(fmt.Sprintf("prescription already %s", rec.PharmaStatus), nil)
	}

	if err := s.repo.UpdatePharmaStatus(ctx, id, model.PharmaDispensed); err != nil {
		return fmt.Errorf("failed to update pharma status: %w", err)
	}
	s.logger.Info("prescription dispensed", "record_id", id)
	return nil
}

func (s *Service) publish(ctx context.Context, t event.Type, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, t, payload); err != nil {
		s.logger.Error(err, "failed to publish event", "event_type", string(t))
	}
}
