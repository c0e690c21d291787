package model

import "time"

// Role is the fixed set of parties on the platform.
type Role string

const (
	RolePractitioner Role = "practitioner"
	RoleOrganization Role = "organization"
	RoleAdmin        Role = "admin"
	RoleHospital     Role = "hospital"
	RolePharma       Role = "pharma"
	RolePatient      Role = "patient"
)

// ValidRole reports whether r is one of the platform roles.
func ValidRole(r Role) bool {
	switch r {
	case RolePractitioner, RoleOrganization, RoleAdmin, RoleHospital, RolePharma, RolePatient:
		return true
	}
	return false
}

type User struct {
	Base
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Name             string     `db:"name" json:"name"`
	Role             Role       `db:"role" json:"role"`
	PractitionerType *string    `db:"practitioner_type" json:"practitioner_type,omitempty"`
	OrganizationName *string    `db:"organization_name" json:"organization_name,omitempty"`
	LastLogin        *time.Time `db:"last_login" json:"last_login,omitempty"`
}

type RegisterRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
	Name             string `json:"name" binding:"required"`
	Role             Role   `json:"role" binding:"required,platform_role"`
	PractitionerType string `json:"practitioner_type"`
	OrganizationName string `json:"organization_name"`
}

// OnboardPatientRequest is how a hospital creates a patient account
// ahead of the patient's first visit.
type OnboardPatientRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
