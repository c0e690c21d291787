package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	"github.com/jwalitptl/credchain-api/internal/service/oracle"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/event"
	"github.com/jwalitptl/credchain-api/pkg/logger"
	"github.com/jwalitptl/credchain-api/pkg/metrics"
)

// Issuer mints a credential for an approved application. Implemented by
// the credential service; declared here so the dependency points one way.
type Issuer interface {
	Issue(ctx context.Context, req *model.VerificationRequest) (*model.Credential, error)
}

// Publisher enqueues domain events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, t event.Type, payload interface{}) error
}

// VerificationService drives a credential application through scoring
// and the two review stages.
type VerificationService interface {
	Submit(ctx context.Context, subjectID uuid.UUID, documentIDs []uuid.UUID) (*model.VerificationRequest, error)
	Analyze(ctx context.Context, id uuid.UUID) (*model.VerificationRequest, error)
	SubmitAnalysis(ctx context.Context, id uuid.UUID, score int, analysis json.RawMessage) (*model.VerificationRequest, error)
	SubmitOrgVerdict(ctx context.Context, id uuid.UUID, verdict model.Verdict, comments string, reviewerID uuid.UUID) (*model.VerificationRequest, error)
	SubmitAdminVerdict(ctx context.Context, id uuid.UUID, verdict model.Verdict, comments string, validityMonths int, reviewerID uuid.UUID) (*model.VerificationRequest, *model.Credential, error)
	Get(ctx context.Context, id uuid.UUID) (*model.VerificationRequest, error)
	List(ctx context.Context, filters *model.VerificationFilters) ([]*model.VerificationRequest, error)
	ListDocuments(ctx context.Context, id uuid.UUID) ([]*model.Document, error)
}

type Service struct {
	repo    repository.VerificationRepository
	scorer  oracle.Scorer
	issuer  Issuer
	events  Publisher
	logger  *logger.Logger
	metrics *metrics.Metrics

	// One lock per in-flight application: a transition reads, checks and
	// writes under it, so concurrent reviewers cannot both win.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(
	repo repository.VerificationRepository,
	scorer oracle.Scorer,
	issuer Issuer,
	events Publisher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:    repo,
		scorer:  scorer,
		issuer:  issuer,
		events:  events,
		logger:  log,
		metrics: m,
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// releaseLock drops an application's mutex once it reaches a terminal
// state, so the map does not grow with every application ever decided.
// A late caller gets a fresh mutex and fails the status check anyway.
func (s *Service) releaseLock(id uuid.UUID) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

// Submit opens a new application in the submitted state and links the
// supporting documents.
func (s *Service) Submit(ctx context.Context, subjectID uuid.UUID, documentIDs []uuid.UUID) (*model.VerificationRequest, error) {
	if len(documentIDs) == 0 {
		return nil, apperrors.NewBadRequest("at least one document is required", nil)
	}

	now := time.Now()
	req := &model.VerificationRequest{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		SubjectID: subjectID,
		Status:    model.StatusSubmitted,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}
	if err := s.repo.LinkDocuments(ctx, req.ID, documentIDs); err != nil {
		return nil, fmt.Errorf("failed to link documents: %w", err)
	}

	s.countTransition(model.StatusSubmitted)
	s.publish(ctx, event.TypeVerificationSubmitted, req)
	s.logger.Info("verification submitted", "verification_id", req.ID, "subject_id", subjectID)
	return req, nil
}

// Analyze moves the application into ai_analysis, scores every linked
// document through the oracle and, on success, advances to pending_org.
// A scoring failure leaves the application parked in ai_analysis; a
// later Analyze call on that state resumes scoring without re-entering
// the transition.
func (s *Service) Analyze(ctx context.Context, id uuid.UUID) (*model.VerificationRequest, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("verification", err)
	}

	switch req.Status {
	case model.StatusSubmitted:
		req.Status = model.StatusAIAnalysis
		if err := s.repo.Update(ctx, req); err != nil {
			return nil, fmt.Errorf("failed to update verification: %w", err)
		}
		s.countTransition(model.StatusAIAnalysis)
	case model.StatusAIAnalysis:
		// resume after a previous oracle failure
	default:
		return nil, s.rejectTransition(req.Status, model.StatusAIAnalysis)
	}

	docs, err := s.repo.ListDocuments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, apperrors.NewBadRequest("verification has no documents to score", nil)
	}

	total := 0
	results := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		result, err := s.scorer.ScoreDocument(ctx, doc.Filepath, doc.DocumentType)
		if err != nil {
			s.logger.Error(err, "document scoring failed", "verification_id", id, "document_id", doc.ID)
			return nil, fmt.Errorf("failed to score document %s: %w", doc.ID, err)
		}
		total += result.Score
		results = append(results, result.Analysis)
	}

	analysis, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}

	return s.applyAnalysis(ctx, req, total/len(docs), analysis)
}

// SubmitAnalysis records an externally produced score for an
// application sitting in ai_analysis and advances it to pending_org.
func (s *Service) SubmitAnalysis(ctx context.Context, id uuid.UUID, score int, analysis json.RawMessage) (*model.VerificationRequest, error) {
	if score < 0 || score > 100 {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("score %d out of range", score), nil)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("verification", err)
	}
	if req.Status != model.StatusAIAnalysis {
		return nil, s.rejectTransition(req.Status, model.StatusPendingOrg)
	}

	return s.applyAnalysis(ctx, req, score, analysis)
}

// applyAnalysis stores the score and advances ai_analysis -> pending_org.
// Caller holds the application lock and has checked the current status.
func (s *Service) applyAnalysis(ctx context.Context, req *model.VerificationRequest, score int, analysis json.RawMessage) (*model.VerificationRequest, error) {
	req.AIScore = &score
	req.AIAnalysis = analysis
	req.Status = model.StatusPendingOrg

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update verification: %w", err)
	}

	s.countTransition(model.StatusPendingOrg)
	s.publish(ctx, event.TypeVerificationScored, req)
	s.logger.Info("verification scored", "verification_id", req.ID, "score", score)
	return req, nil
}

// SubmitOrgVerdict records the organization stage decision. Approval
// advances straight to pending_admin; rejection is terminal.
func (s *Service) SubmitOrgVerdict(ctx context.Context, id uuid.UUID, verdict model.Verdict, comments string, reviewerID uuid.UUID) (*model.VerificationRequest, error) {
	if !model.ValidVerdict(verdict) {
		return nil, fmt.Errorf("verdict %q: %w", verdict, apperrors.ErrInvalidVerdict)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("verification", err)
	}
	if req.Status != model.StatusPendingOrg {
		return nil, s.rejectTransition(req.Status, model.StatusPendingAdmin)
	}

	now := time.Now()
	req.OrgVerdict = &verdict
	req.OrgComments = &comments
	req.OrgReviewerID = &reviewerID
	req.OrgReviewedAt = &now

	if verdict == model.VerdictApproved {
		// org_approved is transient: approval hands straight to admin
		req.Status = model.StatusPendingAdmin
	} else {
		req.Status = model.StatusOrgRejected
	}

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to update verification: %w", err)
	}
	if req.Status.Terminal() {
		s.releaseLock(id)
	}

	s.countTransition(req.Status)
	s.publish(ctx, event.TypeVerificationReviewed, req)
	s.logger.Info("organization verdict recorded",
		"verification_id", id, "verdict", string(verdict), "reviewer_id", reviewerID)
	return req, nil
}

// SubmitAdminVerdict records the final platform decision. Approval
// requires a positive validity window and triggers credential issuance;
// a rejection here dismisses the application.
func (s *Service) SubmitAdminVerdict(ctx context.Context, id uuid.UUID, verdict model.Verdict, comments string, validityMonths int, reviewerID uuid.UUID) (*model.VerificationRequest, *model.Credential, error) {
	if !model.ValidVerdict(verdict) {
		return nil, nil, fmt.Errorf("verdict %q: %w", verdict, apperrors.ErrInvalidVerdict)
	}
	if verdict == model.VerdictApproved && validityMonths <= 0 {
		return nil, nil, apperrors.NewBadRequest(fmt.Sprintf("validity months %d out of range", validityMonths), nil)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, apperrors.NewNotFound("verification", err)
	}
	if req.Status != model.StatusPendingAdmin {
		return nil, nil, s.rejectTransition(req.Status, model.StatusApproved)
	}

	now := time.Now()
	req.AdminVerdict = &verdict
	req.AdminComments = &comments
	req.AdminReviewerID = &reviewerID
	req.AdminReviewedAt = &now

	if verdict == model.VerdictApproved {
		req.Status = model.StatusApproved
		req.ValidityMonths = &validityMonths
	} else {
		req.Status = model.StatusDismissed
	}

	if err := s.repo.Update(ctx, req); err != nil {
		return nil, nil, fmt.Errorf("failed to update verification: %w", err)
	}
	s.releaseLock(id)

	s.countTransition(req.Status)
	s.publish(ctx, event.TypeVerificationDecided, req)
	s.logger.Info("admin verdict recorded",
		"verification_id", id, "verdict", string(verdict), "reviewer_id", reviewerID)

	if req.Status != model.StatusApproved {
		return req, nil, nil
	}

	cred, err := s.issuer.Issue(ctx, req)
	if err != nil {
		// the approval itself is committed; issuance is retried through
		// the reconciliation path, never by re-reviewing
		s.logger.Error(err, "credential issuance failed after approval", "verification_id", id)
		return req, nil, fmt.Errorf("failed to issue credential: %w", err)
	}
	return req, cred, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.VerificationRequest, error) {
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("verification", err)
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, filters *model.VerificationFilters) ([]*model.VerificationRequest, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) ListDocuments(ctx context.Context, id uuid.UUID) ([]*model.Document, error) {
	return s.repo.ListDocuments(ctx, id)
}

func (s *Service) rejectTransition(from, to model.VerificationStatus) error {
	if s.metrics != nil {
		s.metrics.WorkflowRejections.Inc()
	}
	return fmt.Errorf("cannot move %s application to %s: %w", from, to, apperrors.ErrInvalidTransition)
}

func (s *Service) countTransition(to model.VerificationStatus) {
	if s.metrics != nil {
		s.metrics.WorkflowTransitions.WithLabelValues(string(to)).Inc()
	}
}

func (s *Service) publish(ctx context.Context, t event.Type, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, t, payload); err != nil {
		s.logger.Error(err, "failed to publish event", "event_type", string(t))
	}
}
