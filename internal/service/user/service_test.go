package user

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	r.users[id].LastLogin = &at
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.FatalLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func TestOnboardPatient(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	patient, err := svc.OnboardPatient(context.Background(), &model.OnboardPatientRequest{
		Email:    "pat@example.com",
		Password: "correct-horse",
		Name:     "Pat Example",
	})
	require.NoError(t, err)

	assert.Equal(t, model.RolePatient, patient.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(patient.PasswordHash), []byte("correct-horse")))

	stored, err := repo.Get(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", stored.Email)
}

func TestOnboardPatientDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, testLogger())

	_, err := svc.OnboardPatient(context.Background(), &model.OnboardPatientRequest{
		Email:    "pat@example.com",
		Password: "correct-horse",
		Name:     "Pat Example",
	})
	require.NoError(t, err)

	_, err = svc.OnboardPatient(context.Background(), &model.OnboardPatientRequest{
		Email:    "pat@example.com",
		Password: "other-password",
		Name:     "Someone Else",
	})
	assert.Error(t, err)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc := NewService(newFakeUserRepo(), testLogger())

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.Error(t, err)
}
