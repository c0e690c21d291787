package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/credchain-api/internal/keys"
	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	"github.com/jwalitptl/credchain-api/pkg/auth"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const bcryptCost = 12

// AuthService registers platform accounts and issues session tokens.
type AuthService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	ValidateToken(token string) (*auth.Claims, error)
}

type Service struct {
	userRepo repository.UserRepository
	keyRepo  repository.KeyPairRepository
	keySvc   *keys.Service
	jwtSvc   auth.JWTService
	logger   *logger.Logger
}

func NewService(
	userRepo repository.UserRepository,
	keyRepo repository.KeyPairRepository,
	keySvc *keys.Service,
	jwtSvc auth.JWTService,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo: userRepo,
		keyRepo:  keyRepo,
		keySvc:   keySvc,
		jwtSvc:   jwtSvc,
		logger:   log,
	}
}

// Register creates an account. Practitioners get a signing key pair
// provisioned at registration so their first clinical record can be
// signed.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if !model.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}
	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         req.Role,
	}
	if req.PractitionerType != "" {
		user.PractitionerType = &req.PractitionerType
	}
	if req.OrganizationName != "" {
		user.OrganizationName = &req.OrganizationName
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if user.Role == model.RolePractitioner {
		privatePEM, publicPEM, err := s.keySvc.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key pair: %w", err)
		}
		pair := &model.KeyPair{
			UserID:     user.ID,
			PublicKey:  publicPEM,
			PrivateKey: privatePEM,
			CreatedAt:  now,
		}
		if err := s.keyRepo.Store(ctx, pair); err != nil {
			return nil, fmt.Errorf("failed to store key pair: %w", err)
		}
		s.logger.Info("signing keys provisioned", "user_id", user.ID)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", string(user.Role))
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Error(err, "failed to update last login", "user_id", user.ID)
	}
	user.LastLogin = &now

	token, err := s.jwtSvc.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &model.LoginResponse{Token: token, User: user}, nil
}

func (s *Service) ValidateToken(token string) (*auth.Claims, error) {
	return s.jwtSvc.ValidateToken(token)
}
