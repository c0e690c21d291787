package ledger

import (
	"encoding/json"

	"github.com/google/uuid"
)

// PayloadType tags the closed set of block payload variants.
type PayloadType string

const (
	PayloadGenesis      PayloadType = "genesis"
	PayloadCredential   PayloadType = "credential"
	PayloadRecordAnchor PayloadType = "clinical_record"
)

// Issuer is the fixed issuer tag stamped on every non-genesis block.
const Issuer = "CredChain Platform"

// Payload is one of the fixed block payload variants. Fields returns a
// flat map that is encoded canonically (key-sorted) before hashing, so
// the digest never depends on struct field order.
type Payload interface {
	Type() PayloadType
	Fields() map[string]interface{}
}

// GenesisPayload marks the first block of a chain.
type GenesisPayload struct {
	Message string
}

func (GenesisPayload) Type() PayloadType { return PayloadGenesis }

func (p GenesisPayload) Fields() map[string]interface{} {
	return map[string]interface{}{
		"type":    string(PayloadGenesis),
		"message": p.Message,
	}
}

// CredentialPayload anchors an issued credential.
type CredentialPayload struct {
	SubjectID   uuid.UUID
	SubjectName string
	Skill       string
	Verified    bool
}

func (CredentialPayload) Type() PayloadType { return PayloadCredential }

func (p CredentialPayload) Fields() map[string]interface{} {
	return map[string]interface{}{
		"type":       string(PayloadCredential),
		"subject_id": p.SubjectID.String(),
		"name":       p.SubjectName,
		"skill":      p.Skill,
		"verified":   p.Verified,
		"issuer":     Issuer,
	}
}

// RecordAnchorPayload anchors a clinical record. Only the content
// digest goes on the chain: an append-only structure can never be
// redacted, so clinical text must stay off it.
type RecordAnchorPayload struct {
	VisitID          uuid.UUID
	AuthorID         uuid.UUID
	ContentDigest    string
	SignaturePresent bool
}

func (RecordAnchorPayload) Type() PayloadType { return PayloadRecordAnchor }

func (p RecordAnchorPayload) Fields() map[string]interface{} {
	return map[string]interface{}{
		"type":              string(PayloadRecordAnchor),
		"visit_id":          p.VisitID.String(),
		"author_id":         p.AuthorID.String(),
		"content_digest":    p.ContentDigest,
		"signature_present": p.SignaturePresent,
		"issuer":            Issuer,
	}
}

// canonicalJSON encodes v with key-sorted object keys. encoding/json
// sorts map keys, which makes the digest independent of iteration order.
func canonicalJSON(v map[string]interface{}) ([]byte, error) {
	return json.Marshal(v)
}
