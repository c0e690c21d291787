package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VerificationStatus is the workflow state of a credential application.
type VerificationStatus string

const (
	StatusSubmitted    VerificationStatus = "submitted"
	StatusAIAnalysis   VerificationStatus = "ai_analysis"
	StatusPendingOrg   VerificationStatus = "pending_org"
	StatusOrgApproved  VerificationStatus = "org_approved"
	StatusOrgRejected  VerificationStatus = "org_rejected"
	StatusPendingAdmin VerificationStatus = "pending_admin"
	StatusApproved     VerificationStatus = "approved"
	StatusDismissed    VerificationStatus = "dismissed"
)

// Terminal reports whether no further transition may leave s.
func (s VerificationStatus) Terminal() bool {
	switch s {
	case StatusOrgRejected, StatusApproved, StatusDismissed:
		return true
	}
	return false
}

// Verdict is a reviewer decision on an application.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// ValidVerdict reports whether v is an accepted reviewer decision.
func ValidVerdict(v Verdict) bool {
	return v == VerdictApproved || v == VerdictRejected
}

// VerificationRequest tracks one practitioner's credential application
// through scoring and the two review stages. Rows are never deleted;
// the full review trail is the audit record.
type VerificationRequest struct {
	Base
	SubjectID       uuid.UUID          `db:"subject_id" json:"subject_id"`
	Status          VerificationStatus `db:"status" json:"status"`
	AIScore         *int               `db:"ai_score" json:"ai_score,omitempty"`
	AIAnalysis      json.RawMessage    `db:"ai_analysis" json:"ai_analysis,omitempty"`
	OrgVerdict      *Verdict           `db:"org_verdict" json:"org_verdict,omitempty"`
	OrgComments     *string            `db:"org_comments" json:"org_comments,omitempty"`
	OrgReviewerID   *uuid.UUID         `db:"org_reviewer_id" json:"org_reviewer_id,omitempty"`
	OrgReviewedAt   *time.Time         `db:"org_reviewed_at" json:"org_reviewed_at,omitempty"`
	AdminVerdict    *Verdict           `db:"admin_verdict" json:"admin_verdict,omitempty"`
	AdminComments   *string            `db:"admin_comments" json:"admin_comments,omitempty"`
	AdminReviewerID *uuid.UUID         `db:"admin_reviewer_id" json:"admin_reviewer_id,omitempty"`
	AdminReviewedAt *time.Time         `db:"admin_reviewed_at" json:"admin_reviewed_at,omitempty"`
	ValidityMonths  *int               `db:"validity_months" json:"validity_months,omitempty"`
}

type SubmitVerificationRequest struct {
	DocumentIDs []uuid.UUID `json:"document_ids" binding:"required,min=1"`
}

type ReviewRequest struct {
	Verdict  Verdict `json:"verdict" binding:"required,review_verdict"`
	Comments string  `json:"comments"`
}

type AdminReviewRequest struct {
	Verdict        Verdict `json:"verdict" binding:"required,review_verdict"`
	Comments       string  `json:"comments"`
	ValidityMonths int     `json:"validity_months"`
}

type VerificationFilters struct {
	SubjectID uuid.UUID
	Status    VerificationStatus
}
