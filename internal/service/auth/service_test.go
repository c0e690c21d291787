package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/credchain-api/internal/keys"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/pkg/auth"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

type fakeUserRepo struct {
	byID    map[uuid.UUID]*model.User
	byEmail map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[uuid.UUID]*model.User),
		byEmail: make(map[string]*model.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, errors.New("not found")
	}
	return user, nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	user, ok := r.byID[id]
	if !ok {
		return errors.New("not found")
	}
	user.LastLogin = &at
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

func newTestService() (*Service, *fakeUserRepo, *fakeKeyPairRepo) {
	users := newFakeUserRepo()
	pairs := &fakeKeyPairRepo{pairs: make(map[uuid.UUID]*model.KeyPair)}
	svc := NewService(
		users,
		pairs,
		keys.NewService(testLogger()),
		auth.NewJWTService("test-secret", 1),
		testLogger(),
	)
	return svc, users, pairs
}

func TestRegisterPractitionerProvisionsKeys(t *testing.T) {
	svc, _, pairs := newTestService()

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:            "dr@example.com",
		Password:         "correct horse",
		Name:             "Dr. Example",
		Role:             model.RolePractitioner,
		PractitionerType: "cardiology",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RolePractitioner, user.Role)
	require.NotNil(t, user.PractitionerType)
	assert.Equal(t, "cardiology", *user.PractitionerType)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	pair, err := pairs.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Contains(t, pair.PublicKey, "PUBLIC KEY")
	assert.Contains(t, pair.PrivateKey, "PRIVATE KEY")
}

func TestRegisterNonPractitionerSkipsKeys(t *testing.T) {
	svc, _, pairs := newTestService()

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "org@example.com",
		Password: "password123",
		Name:     "Medical Council",
		Role:     model.RoleOrganization,
	})
	require.NoError(t, err)

	_, err = pairs.Get(context.Background(), user.ID)
	assert.ErrorIs(t, err, apperrors.ErrKeyPairNotFound)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "x@example.com",
		Password: "password123",
		Name:     "X",
		Role:     model.Role("superuser"),
	})
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	req := &model.RegisterRequest{
		Email:    "dup@example.com",
		Password: "password123",
		Name:     "First",
		Role:     model.RolePatient,
	}
	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), req)
	assert.Error(t, err)
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "login@example.com",
		Password: "password123",
		Name:     "Login",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), "login@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotNil(t, resp.User.LastLogin)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "login@example.com",
		Password: "password123",
		Name:     "Login",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "login@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	// token signed with a different secret
	other := auth.NewJWTService("other-secret", 1)
	token, err := other.GenerateToken(&model.User{Base: model.Base{ID: uuid.New()}, Email: "a@b.c", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}
