package record

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

	"github.com/jwalitptl/credchain-api/internal/keys"
	"github.com/jwalitptl/credchain-api/internal/ledger"
	"github.com/jwalitptl/credchain-api/internal/model"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.ClinicalRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[uuid.UUID]*model.ClinicalRecord)}
}

func (r *fakeRecordRepo) Create(_ context.Context, rec *model.ClinicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.records[rec.ID] = &clone
	return nil
}

func (r *fakeRecordRepo) Get(_ context.Context, id uuid.UUID) (*model.ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *rec
	return &clone, nil
}

func (r *fakeRecordRepo) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*model.ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.AppointmentID == appointmentID {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *fakeRecordRepo) ListByPatient(_ context.Context, _ uuid.UUID) ([]*model.ClinicalRecord, error) {
	return nil, nil
}

func (r *fakeRecordRepo) ListWithPrescriptions(_ context.Context) ([]*model.ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ClinicalRecord
	for _, rec := range r.records {
		if rec.Prescription != "" {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) UpdatePharmaStatus(_ context.Context, id uuid.UUID, status model.PharmaStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return errors.New("not found")
	}
	rec.PharmaStatus = status
	return nil
}

func (r *fakeRecordRepo) ListLedgerHashes(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var hashes []string
	for _, rec := range r.records {
		hashes = append(hashes, rec.LedgerHash)
	}
	return hashes, nil
}

// tamper rewrites stored content without re-anchoring.
func (r *fakeRecordRepo) tamper(id uuid.UUID, diagnosis string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].Diagnosis = diagnosis
}

// rewire points a row at another record's anchor block.
func (r *fakeRecordRepo) rewire(id uuid.UUID, ledgerHash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id].LedgerHash = ledgerHash
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments[a.ID] = a
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, errors.New("not found")
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = status
	return nil
}

type fakeKeyPairRepo struct {
	pairs map[uuid.UUID]*model.KeyPair
}

func (r *fakeKeyPairRepo) Store(_ context.Context, pair *model.KeyPair) error {
	r.pairs[pair.UserID] = pair
	return nil
}

func (r *fakeKeyPairRepo) Get(_ context.Context, userID uuid.UUID) (*model.KeyPair, error) {
	pair, ok := r.pairs[userID]
	if !ok {
		return nil, apperrors.ErrKeyPairNotFound
	}
	return pair, nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.FatalLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type env struct {
	svc          *Service
	repo         *fakeRecordRepo
	appointments *fakeAppointmentRepo
	keypairs     *fakeKeyPairRepo
	signer       *keys.Service
	chain        *ledger.Chain
}

func newEnv(t *testing.T) *env {
	t.Helper()
	chain, err := ledger.NewChain(nil, nil)
	require.NoError(t, err)

	repo := newFakeRecordRepo()
	appointments := newFakeAppointmentRepo()
	keypairs := &fakeKeyPairRepo{pairs: make(map[uuid.UUID]*model.KeyPair)}
	signer := keys.NewService(testLogger())
	svc := NewService(repo, appointments, keypairs, signer, chain, nil, testLogger(), nil)
	return &env{svc: svc, repo: repo, appointments: appointments, keypairs: keypairs, signer: signer, chain: chain}
}

func (e *env) scheduledAppointment(t *testing.T) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		Base:        model.Base{ID: uuid.New()},
		PatientID:   uuid.New(),
		HospitalID:  uuid.New(),
		ScheduledAt: time.Now(),
		Status:      model.AppointmentScheduled,
	}
	require.NoError(t, e.appointments.Create(context.Background(), a))
	return a
}

func (e *env) authorWithKeys(t *testing.T) uuid.UUID {
	t.Helper()
	authorID := uuid.New()
	privatePEM, publicPEM, err := e.signer.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, e.keypairs.Store(context.Background(), &model.KeyPair{
		UserID:     authorID,
		PublicKey:  publicPEM,
		PrivateKey: privatePEM,
		CreatedAt:  time.Now(),
	}))
	return authorID
}

func TestCreateSignsAndAnchors(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)
	authorID := e.authorWithKeys(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, authorID, "hypertension", "amlodipine 5mg")
	require.NoError(t, err)

	assert.True(t, rec.SignaturePresent)
	assert.NotEmpty(t, rec.Signature)
	assert.Equal(t, model.PharmaPending, rec.PharmaStatus)

	block, found := e.chain.FindByHash(rec.LedgerHash)
	require.True(t, found)
	assert.Equal(t, ledger.PayloadRecordAnchor, block.Payload.Type())
	assert.Equal(t, true, block.Payload.Fields()["signature_present"])
	assert.Equal(t, appointment.ID.String(), block.Payload.Fields()["visit_id"])
	assert.Equal(t, authorID.String(), block.Payload.Fields()["author_id"])

	// the clinical text must not appear on the chain
	for field, value := range block.Payload.Fields() {
		if s, ok := value.(string); ok {
			assert.NotContains(t, s, "hypertension", "field %s leaks diagnosis", field)
			assert.NotContains(t, s, "amlodipine", "field %s leaks prescription", field)
		}
	}

	got, err := e.appointments.Get(context.Background(), appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, got.Status)
}

func TestCreateWithoutKeysAnchorsUnsigned(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, uuid.New(), "sprained ankle", "")
	require.NoError(t, err)

	assert.False(t, rec.SignaturePresent)
	assert.Empty(t, rec.Signature)

	block, found := e.chain.FindByHash(rec.LedgerHash)
	require.True(t, found)
	assert.Equal(t, false, block.Payload.Fields()["signature_present"])
}

func TestCreateRejectsCompletedAppointment(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)
	authorID := e.authorWithKeys(t)

	_, err := e.svc.Create(context.Background(), appointment.ID, authorID, "flu", "")
	require.NoError(t, err)

	_, err = e.svc.Create(context.Background(), appointment.ID, authorID, "flu again", "")
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestCreateRequiresDiagnosis(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)

	_, err := e.svc.Create(context.Background(), appointment.ID, uuid.New(), "", "aspirin")
	require.Error(t, err)
	assert.Equal(t, 1, e.chain.Len())
}

func TestVerifySignedRecord(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)
	authorID := e.authorWithKeys(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, authorID, "migraine", "sumatriptan")
	require.NoError(t, err)

	result, err := e.svc.Verify(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.True(t, result.SignaturePresent)
	assert.True(t, result.SignatureValid)
	assert.True(t, result.Anchored)
	assert.True(t, result.DigestMatch)
}

func TestVerifyDetectsTamperedContent(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)
	authorID := e.authorWithKeys(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, authorID, "migraine", "sumatriptan")
	require.NoError(t, err)

	e.repo.tamper(rec.ID, "altered diagnosis")

	result, err := e.svc.Verify(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, result.SignatureValid)
	assert.True(t, result.Anchored)
	assert.False(t, result.DigestMatch)
}

func TestVerifyRejectsForeignAnchor(t *testing.T) {
	e := newEnv(t)
	authorID := e.authorWithKeys(t)

	first := e.scheduledAppointment(t)
	rec, err := e.svc.Create(context.Background(), first.ID, authorID, "migraine", "")
	require.NoError(t, err)

	second := e.scheduledAppointment(t)
	other, err := e.svc.Create(context.Background(), second.ID, authorID, "migraine", "")
	require.NoError(t, err)

	// same content, same author, but the block names another visit
	e.repo.rewire(rec.ID, other.LedgerHash)

	result, err := e.svc.Verify(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, result.Anchored)
	assert.False(t, result.DigestMatch)
}

func TestVerifyUnsignedRecord(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, uuid.New(), "checkup", "")
	require.NoError(t, err)

	result, err := e.svc.Verify(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.False(t, result.SignaturePresent)
	assert.False(t, result.SignatureValid)
	assert.True(t, result.Anchored)
	assert.True(t, result.DigestMatch)
}

func TestDispense(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)
	authorID := e.authorWithKeys(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, authorID, "infection", "amoxicillin")
	require.NoError(t, err)

	require.NoError(t, e.svc.Dispense(context.Background(), rec.ID))

	got, err := e.svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PharmaDispensed, got.PharmaStatus)

	err = e.svc.Dispense(context.Background(), rec.ID)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestDispenseRequiresPrescription(t *testing.T) {
	e := newEnv(t)
	appointment := e.scheduledAppointment(t)

	rec, err := e.svc.Create(context.Background(), appointment.ID, uuid.New(), "checkup", "")
	require.NoError(t, err)

	err = e.svc.Dispense(context.Background(), rec.ID)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestListWithPrescriptions(t *testing.T) {
	e := newEnv(t)
	authorID := e.authorWithKeys(t)

	first := e.scheduledAppointment(t)
	_, err := e.svc.Create(context.Background(), first.ID, authorID, "infection", "amoxicillin")
	require.NoError(t, err)

	second := e.scheduledAppointment(t)
	_, err = e.svc.Create(context.Background(), second.ID, authorID, "checkup", "")
	require.NoError(t, err)

	pending, err := e.svc.ListWithPrescriptions(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
