package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies a domain event published through the outbox.
type Type string

const (
	TypeVerificationSubmitted Type = "verification.submitted"
	TypeVerificationScored    Type = "verification.scored"
	TypeVerificationReviewed  Type = "verification.reviewed"
	TypeVerificationDecided   Type = "verification.decided"
	TypeCredentialIssued      Type = "credential.issued"
	TypeCredentialExpired     Type = "credential.expired"
	TypeCredentialRevoked     Type = "credential.revoked"
	TypeRecordAnchored        Type = "record.anchored"
)

// Envelope is the wire form every published event shares.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps a payload for publication. Marshalling failures are
// returned to the caller; an event with a payload that cannot be encoded
// must not reach the outbox.
func NewEnvelope(t Type, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now(),
		Payload:    raw,
	}, nil
}
