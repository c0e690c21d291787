package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
)

type keyPairRepository struct {
	BaseRepository
}

func NewKeyPairRepository(base BaseRepository) repository.KeyPairRepository {
	return &keyPairRepository{base}
}

func (r *keyPairRepository) Store(ctx context.Context, pair *model.KeyPair) error {
	query := `
		INSERT INTO user_keys (user_id, public_key, private_key, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET public_key = EXCLUDED.public_key, private_key = EXCLUDED.private_key
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		pair.UserID,
		pair.PublicKey,
		pair.PrivateKey,
		pair.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store key pair: %w", err)
	}
	return nil
}

// Get returns ErrKeyPairNotFound when no pair exists so callers can
// distinguish a missing key from a verification failure.
func (r *keyPairRepository) Get(ctx context.Context, userID uuid.UUID) (*model.KeyPair, error) {
	query := `SELECT * FROM user_keys WHERE user_id = $1`
	var pair model.KeyPair
	if err := r.GetDB().GetContext(ctx, &pair, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrKeyPairNotFound
		}
		return nil, fmt.Errorf("failed to get key pair: %w", err)
	}
	return &pair, nil
}
