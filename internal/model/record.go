package model

import "github.com/google/uuid"

// PharmaStatus tracks prescription handling by the pharmacy.
type PharmaStatus string

const (
	PharmaPending   PharmaStatus = "pending"
	PharmaDispensed PharmaStatus = "dispensed"
)

// ClinicalRecord is one signed clinical visit outcome. Content is the
// deterministic concatenation of diagnosis and prescription; the ledger
// stores only its digest, never the text itself.
type ClinicalRecord struct {
	Base
	AppointmentID    uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	AuthorID         uuid.UUID    `db:"author_id" json:"author_id"`
	Diagnosis        string       `db:"diagnosis" json:"diagnosis"`
	Prescription     string       `db:"prescription" json:"prescription"`
	Signature        string       `db:"signature" json:"signature,omitempty"`
	SignaturePresent bool         `db:"signature_present" json:"signature_present"`
	PharmaStatus     PharmaStatus `db:"pharma_status" json:"pharma_status"`
	LedgerHash       string       `db:"ledger_hash" json:"ledger_hash"`
}

// Content returns the byte string that is signed and digested. The
// separator keeps the concatenation unambiguous.
func (r *ClinicalRecord) Content() []byte {
	return []byte(r.Diagnosis + "|" + r.Prescription)
}

type CreateRecordRequest struct {
	Diagnosis    string `json:"diagnosis" binding:"required"`
	Prescription string `json:"prescription"`
}
