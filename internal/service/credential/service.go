package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

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

// CredentialService mints, verifies and retires ledger-anchored
// credentials.
type CredentialService interface {
	Issue(ctx context.Context, req *model.VerificationRequest) (*model.Credential, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Credential, error)
	GetActiveBySubject(ctx context.Context, subjectID uuid.UUID) (*model.Credential, error)
	List(ctx context.Context, filters *model.CredentialFilters) ([]*model.Credential, error)
	VerifyByHash(ctx context.Context, hash string) (*model.VerifyCredentialResponse, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	SweepExpired(ctx context.Context) (int64, error)
	ExportLedger() []*ledger.Block
	ValidateLedger() bool
	Reconcile(ctx context.Context) ([]string, error)
}

type Service struct {
	repo        repository.CredentialRepository
	users       repository.UserRepository
	records     repository.RecordRepository
	chain       *ledger.Chain
	events      Publisher
	logger      *logger.Logger
	metrics     *metrics.Metrics
	verifyCache *cache.Cache
}

func NewService(
	repo repository.CredentialRepository,
	users repository.UserRepository,
	records repository.RecordRepository,
	chain *ledger.Chain,
	events Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		records:     records,
		chain:       chain,
		events:      events,
		logger:      log,
		metrics:     m,
		verifyCache: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Issue anchors an approved application on the ledger and persists the
// credential row. The chain is validated first: a broken chain halts
// issuance outright. The ledger append commits before the row insert,
// so a crash between the two leaves an orphaned block that the
// reconciliation sweep reports; it is never silently repaired.
func (s *Service) Issue(ctx context.Context, req *model.VerificationRequest) (*model.Credential, error) {
	if req.Status != model.StatusApproved {
		return nil, fmt.Errorf("cannot issue for %s application: %w", req.Status, apperrors.ErrInvalidTransition)
	}
	if req.ValidityMonths == nil || *req.ValidityMonths <= 0 {
		return nil, apperrors.NewBadRequest("approved application has no validity window", nil)
	}

	if !s.chain.Validate() {
		return nil, apperrors.ErrChainTampered
	}

	subject, err := s.users.Get(ctx, req.SubjectID)
	if err != nil {
		return nil, apperrors.NewNotFound("subject", err)
	}
	skill := "general practice"
	if subject.PractitionerType != nil {
		skill = *subject.PractitionerType
	}

	block, err := s.chain.Append(ledger.CredentialPayload{
		SubjectID:   subject.ID,
		SubjectName: subject.Name,
		Skill:       skill,
		Verified:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to anchor credential: %w", err)
	}

	now := time.Now()
	cred := &model.Credential{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		VerificationID: req.ID,
		SubjectID:      subject.ID,
		LedgerHash:     block.Hash,
		IssuedAt:       now,
		ExpiresAt:      now.AddDate(0, *req.ValidityMonths, 0),
		Status:         model.CredentialActive,
	}

	if err := s.repo.Create(ctx, cred); err != nil {
		s.logger.Error(apperrors.ErrOrphanedLedgerEntry, "credential row insert failed after ledger append",
			"ledger_hash", block.Hash, "verification_id", req.ID)
		if s.metrics != nil {
			s.metrics.OrphanedEntries.Inc()
		}
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
	}
	s.publish(ctx, event.TypeCredentialIssued, cred)
	s.logger.Info("credential issued",
		"credential_id", cred.ID, "subject_id", subject.ID, "ledger_hash", block.Hash, "expires_at", cred.ExpiresAt)
	return cred, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Credential, error) {
	cred, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("credential", err)
	}
	return cred, nil
}

func (s *Service) GetActiveBySubject(ctx context.Context, subjectID uuid.UUID) (*model.Credential, error) {
	cred, err := s.repo.GetActiveBySubject(ctx, subjectID)
	if err != nil {
		return nil, apperrors.NewNotFound("credential", err)
	}
	return cred, nil
}

func (s *Service) List(ctx context.Context, filters *model.CredentialFilters) ([]*model.Credential, error) {
	creds, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// VerifyByHash answers the public trust question: does this hash name a
// credential block on the ledger? Only ledger fields leave the
// platform; negative answers are not cached so a just-issued credential
// verifies immediately.
func (s *Service) VerifyByHash(_ context.Context, hash string) (*model.VerifyCredentialResponse, error) {
	if cached, ok := s.verifyCache.Get(hash); ok {
		return cached.(*model.VerifyCredentialResponse), nil
	}

	block, found := s.chain.FindByHash(hash)
	if !found || block.Payload.Type() != ledger.PayloadCredential {
		return &model.VerifyCredentialResponse{Verified: false}, nil
	}

	data := block.Payload.Fields()
	data["index"] = block.Index
	data["timestamp"] = block.Timestamp.UTC().Format(time.RFC3339Nano)
	data["hash"] = block.Hash

	resp := &model.VerifyCredentialResponse{Verified: true, Data: data}
	s.verifyCache.Set(hash, resp, cache.DefaultExpiration)
	return resp, nil
}

// Revoke retires a credential before its natural expiry. The ledger
// block stays; the row status is the revocation authority.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID) error {
	cred, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NewNotFound("credential", err)
	}
	if cred.Status != model.CredentialActive {
		return apperrors.NewConflict(fmt.Sprintf("credential is %s", cred.Status), nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.CredentialRevoked); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	s.verifyCache.Delete(cred.LedgerHash)
	s.publish(ctx, event.TypeCredentialRevoked, cred)
	s.logger.Info("credential revoked", "credential_id", id, "subject_id", cred.SubjectID)
	return nil
}

// SweepExpired flips every active credential past its expiry to
// expired. Runs from the background worker; idempotent.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.SweepExpired(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired credentials: %w", err)
	}
	if count > 0 {
		if s.metrics != nil {
			s.metrics.CredentialsExpired.Add(float64(count))
		}
		s.publish(ctx, event.TypeCredentialExpired, map[string]interface{}{"count": count})
		s.logger.Info("expired credentials swept", "count", count)
	}
	return count, nil
}

// ExportLedger returns the full ordered chain for independent audit.
func (s *Service) ExportLedger() []*ledger.Block {
	return s.chain.Export()
}

// ValidateLedger runs a full chain integrity check.
func (s *Service) ValidateLedger() bool {
	return s.chain.Validate()
}

// Reconcile cross-checks every non-genesis block against its backing
// row and returns the hashes of orphaned blocks. Orphans are alarmed,
// never auto-corrected: deleting a block would break the chain and
// fabricating a row would forge a record.
func (s *Service) Reconcile(ctx context.Context) ([]string, error) {
	credHashes, err := s.repo.ListLedgerHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credential hashes: %w", err)
	}
	recordHashes, err := s.records.ListLedgerHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list record hashes: %w", err)
	}

	known := make(map[string]struct{}, len(credHashes)+len(recordHashes))
	for _, h := range credHashes {
		known[h] = struct{}{}
	}
	for _, h := range recordHashes {
		known[h] = struct{}{}
	}

	var orphans []string
	for _, block := range s.chain.Export() {
		if block.Payload.Type() == ledger.PayloadGenesis {
			continue
		}
		if _, ok := known[block.Hash]; !ok {
			orphans = append(orphans, block.Hash)
			s.logger.Error(apperrors.ErrOrphanedLedgerEntry, "orphaned ledger entry",
				"index", block.Index, "hash", block.Hash, "type", string(block.Payload.Type()))
		}
	}

	if len(orphans) > 0 && s.metrics != nil {
		s.metrics.OrphanedEntries.Add(float64(len(orphans)))
	}
	return orphans, nil
}

func (s *Service) publish(ctx context.Context, t event.Type, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, t, payload); err != nil {
		s.logger.Error(err, "failed to publish event", "event_type", string(t))
	}
}
