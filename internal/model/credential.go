package model

import (
	"time"

	"github.com/google/uuid"
)

// CredentialStatus is the lifecycle state of an issued credential.
type CredentialStatus string

const (
	CredentialActive  CredentialStatus = "active"
	CredentialExpired CredentialStatus = "expired"
	CredentialRevoked CredentialStatus = "revoked"
)

// Credential is the time-bounded, ledger-anchored proof that a
// verification request was approved. LedgerHash is the only ledger
// data duplicated outside the chain.
type Credential struct {
	Base
	VerificationID uuid.UUID        `db:"verification_id" json:"verification_id"`
	SubjectID      uuid.UUID        `db:"subject_id" json:"subject_id"`
	LedgerHash     string           `db:"ledger_hash" json:"ledger_hash"`
	IssuedAt       time.Time        `db:"issued_at" json:"issued_at"`
	ExpiresAt      time.Time        `db:"expires_at" json:"expires_at"`
	Status         CredentialStatus `db:"status" json:"status"`
}

type CredentialFilters struct {
	SubjectID uuid.UUID
	Status    CredentialStatus
}

type VerifyCredentialRequest struct {
	Hash string `json:"hash" binding:"required"`
}

// VerifyCredentialResponse is the one payload exposed outside the
// platform's trust boundary. It must never carry keys or clinical text.
type VerifyCredentialResponse struct {
	Verified bool                   `json:"verified"`
	Data     map[string]interface{} `json:"data"`
}
