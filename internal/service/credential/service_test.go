package credential

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/credchain-api/internal/ledger"
	"github.com/jwalitptl/credchain-api/internal/model"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

type fakeCredentialRepo struct {
	mu         sync.Mutex
	creds      map[uuid.UUID]*model.Credential
	failCreate bool
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[uuid.UUID]*model.Credential)}
}

func (r *fakeCredentialRepo) Create(_ context.Context, cred *model.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("insert failed")
	}
	clone := *cred
	r.creds[cred.ID] = &clone
	return nil
}

func (r *fakeCredentialRepo) Get(_ context.Context, id uuid.UUID) (*model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[id]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *cred
	return &clone, nil
}

func (r *fakeCredentialRepo) GetActiveBySubject(_ context.Context, subjectID uuid.UUID) (*model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.creds {
		if cred.SubjectID == subjectID && cred.Status == model.CredentialActive {
			clone := *cred
			return &clone, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeCredentialRepo) List(_ context.Context, filters *model.CredentialFilters) ([]*model.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var creds []*model.Credential
	for _, cred := range r.creds {
		if filters != nil && filters.SubjectID != uuid.Nil && cred.SubjectID != filters.SubjectID {
			continue
		}
		if filters != nil && filters.Status != "" && cred.Status != filters.Status {
			continue
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

func (r *fakeCredentialRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.CredentialStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[id]
	if !ok {
		return errors.New("not found")
	}
	cred.Status = status
	return nil
}

func (r *fakeCredentialRepo) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, cred := range r.creds {
		if cred.Status == model.CredentialActive && cred.ExpiresAt.Before(now) {
			cred.Status = model.CredentialExpired
			count++
		}
	}
	return count, nil
}

func (r *fakeCredentialRepo) ListLedgerHashes(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hashes []string
	for _, cred := range r.creds {
		hashes = append(hashes, cred.LedgerHash)
	}
	return hashes, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, errors.New("not found")
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type fakeRecordRepo struct {
	hashes []string
}

func (r *fakeRecordRepo) Create(_ context.Context, _ *model.ClinicalRecord) error { return nil }
func (r *fakeRecordRepo) Get(_ context.Context, _ uuid.UUID) (*model.ClinicalRecord, error) {
	return nil, errors.New("not found")
}
func (r *fakeRecordRepo) GetByAppointment(_ context.Context, _ uuid.UUID) (*model.ClinicalRecord, error) {
	return nil, errors.New("not found")
}
func (r *fakeRecordRepo) ListByPatient(_ context.Context, _ uuid.UUID) ([]*model.ClinicalRecord, error) {
	return nil, nil
}
func (r *fakeRecordRepo) ListWithPrescriptions(_ context.Context) ([]*model.ClinicalRecord, error) {
	return nil, nil
}
func (r *fakeRecordRepo) UpdatePharmaStatus(_ context.Context, _ uuid.UUID, _ model.PharmaStatus) error {
	return nil
}
func (r *fakeRecordRepo) ListLedgerHashes(_ context.Context) ([]string, error) {
	return r.hashes, nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.FatalLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type env struct {
	svc   *Service
	repo  *fakeCredentialRepo
	users *fakeUserRepo
	chain *ledger.Chain
}

func newEnv(t *testing.T) *env {
	t.Helper()
	chain, err := ledger.NewChain(nil, nil)
	require.NoError(t, err)

	repo := newFakeCredentialRepo()
	users := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	svc := NewService(repo, users, &fakeRecordRepo{}, chain, nil, testLogger(), nil)
	return &env{svc: svc, repo: repo, users: users, chain: chain}
}

func (e *env) approvedRequest(t *testing.T, months int) *model.VerificationRequest {
	t.Helper()
	specialty := "cardiology"
	user := &model.User{
		Base:             model.Base{ID: uuid.New()},
		Email:            "dr@example.com",
		Name:             "Dr. Example",
		Role:             model.RolePractitioner,
		PractitionerType: &specialty,
	}
	e.users.users[user.ID] = user

	return &model.VerificationRequest{
		Base:           model.Base{ID: uuid.New()},
		SubjectID:      user.ID,
		Status:         model.StatusApproved,
		ValidityMonths: &months,
	}
}

func TestIssueAnchorsAndPersists(t *testing.T) {
	e := newEnv(t)
	req := e.approvedRequest(t, 12)

	before := time.Now()
	cred, err := e.svc.Issue(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, model.CredentialActive, cred.Status)
	assert.Equal(t, req.ID, cred.VerificationID)
	assert.Equal(t, req.SubjectID, cred.SubjectID)
	assert.WithinDuration(t, before.AddDate(0, 12, 0), cred.ExpiresAt, 5*time.Second)

	block, found := e.chain.FindByHash(cred.LedgerHash)
	require.True(t, found)
	assert.Equal(t, ledger.PayloadCredential, block.Payload.Type())
	assert.Equal(t, "cardiology", block.Payload.Fields()["skill"])
	assert.Equal(t, 2, e.chain.Len())

	stored, err := e.svc.Get(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, cred.LedgerHash, stored.LedgerHash)
}

func TestIssueRejectsUnapprovedApplication(t *testing.T) {
	e := newEnv(t)
	req := e.approvedRequest(t, 12)
	req.Status = model.StatusPendingAdmin

	_, err := e.svc.Issue(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 1, e.chain.Len())
}

func TestIssueHaltsOnTamperedChain(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 6))
	require.NoError(t, err)

	blocks := e.chain.Export()
	blocks[1].PrevHash = "forged"

	_, err = e.svc.Issue(context.Background(), e.approvedRequest(t, 6))
	assert.ErrorIs(t, err, apperrors.ErrChainTampered)
}

func TestIssueOrphanOnRowInsertFailure(t *testing.T) {
	e := newEnv(t)
	e.repo.failCreate = true

	_, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 12))
	require.Error(t, err)

	// the block landed but no row backs it
	assert.Equal(t, 2, e.chain.Len())
	orphans, err := e.svc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	head, err := e.chain.Latest()
	require.NoError(t, err)
	assert.Equal(t, head.Hash, orphans[0])
}

func TestVerifyByHash(t *testing.T) {
	e := newEnv(t)
	cred, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 12))
	require.NoError(t, err)

	resp, err := e.svc.VerifyByHash(context.Background(), cred.LedgerHash)
	require.NoError(t, err)
	assert.True(t, resp.Verified)
	assert.Equal(t, "Dr. Example", resp.Data["name"])
	assert.Equal(t, true, resp.Data["verified"])
	assert.Equal(t, ledger.Issuer, resp.Data["issuer"])

	// cached second lookup returns the same answer
	again, err := e.svc.VerifyByHash(context.Background(), cred.LedgerHash)
	require.NoError(t, err)
	assert.True(t, again.Verified)
}

func TestVerifyByHashUnknownAndGenesis(t *testing.T) {
	e := newEnv(t)

	resp, err := e.svc.VerifyByHash(context.Background(), "0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, resp.Verified)

	genesis := e.chain.Export()[0]
	resp, err = e.svc.VerifyByHash(context.Background(), genesis.Hash)
	require.NoError(t, err)
	assert.False(t, resp.Verified)
}

func TestRevoke(t *testing.T) {
	e := newEnv(t)
	cred, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 12))
	require.NoError(t, err)

	require.NoError(t, e.svc.Revoke(context.Background(), cred.ID))

	stored, err := e.svc.Get(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CredentialRevoked, stored.Status)

	err = e.svc.Revoke(context.Background(), cred.ID)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestSweepExpired(t *testing.T) {
	e := newEnv(t)
	cred, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 12))
	require.NoError(t, err)

	e.repo.mu.Lock()
	e.repo.creds[cred.ID].ExpiresAt = time.Now().Add(-time.Hour)
	e.repo.mu.Unlock()

	count, err := e.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := e.svc.Get(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CredentialExpired, stored.Status)

	// nothing left to sweep
	count, err = e.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReconcileCleanChain(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 12))
	require.NoError(t, err)

	orphans, err := e.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestExportAndValidateLedger(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Issue(context.Background(), e.approvedRequest(t, 12))
	require.NoError(t, err)

	blocks := e.svc.ExportLedger()
	assert.Len(t, blocks, 2)
	assert.True(t, e.svc.ValidateLedger())
}
