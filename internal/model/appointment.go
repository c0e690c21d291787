package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	Base
	PatientID   uuid.UUID         `db:"patient_id" json:"patient_id"`
	ClinicianID *uuid.UUID        `db:"clinician_id" json:"clinician_id,omitempty"`
	HospitalID  uuid.UUID         `db:"hospital_id" json:"hospital_id"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Department  string            `db:"department" json:"department"`
	Status      AppointmentStatus `db:"status" json:"status"`
}

type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" binding:"required"`
	ClinicianID uuid.UUID `json:"clinician_id"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
	Department  string    `json:"department"`
}

type AppointmentFilters struct {
	PatientID   uuid.UUID
	ClinicianID uuid.UUID
	HospitalID  uuid.UUID
	Status      AppointmentStatus
}
