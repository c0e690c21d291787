package model

import (
	"time"

	"github.com/google/uuid"
)

// KeyPair holds the PEM-encoded signing keys for one practitioner.
// The private key never appears in API responses; it leaves the
// repository only for the signing call itself.
type KeyPair struct {
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	PublicKey  string    `db:"public_key" json:"public_key"`
	PrivateKey string    `db:"private_key" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
