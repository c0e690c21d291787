package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// AppointmentService schedules hospital visits. Completion is owned by
// the record service: writing the visit record is what completes the
// appointment.
type AppointmentService interface {
	Create(ctx context.Context, hospitalID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo   repository.AppointmentRepository
	users  repository.UserRepository
	logger *logger.Logger
}

func NewService(repo repository.AppointmentRepository, users repository.UserRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, logger: log}
}

func (s *Service) Create(ctx context.Context, hospitalID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patient, err := s.users.Get(ctx, req.PatientID)
	if err != nil {
		return nil, apperrors.NewNotFound("patient", err)
	}
	if patient.Role != model.RolePatient {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("user %s is not a patient", patient.ID), nil)
	}

	now := time.Now()
	appointment := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID:   req.PatientID,
		HospitalID:  hospitalID,
		ScheduledAt: req.ScheduledAt,
		Department:  req.Department,
		Status:      model.AppointmentScheduled,
	}
	if req.ClinicianID != uuid.Nil {
		clinicianID := req.ClinicianID
		appointment.ClinicianID = &clinicianID
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Info("appointment scheduled",
		"appointment_id", appointment.ID, "patient_id", req.PatientID, "scheduled_at", req.ScheduledAt)
	return appointment, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFound("appointment", err)
	}
	return appointment, nil
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		return apperrors.NewNotFound("appointment", err)
	}
	if appointment.Status != model.AppointmentScheduled {
		return apperrors.NewConflict(fmt.Sprintf("appointment is %s", appointment.Status), nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.AppointmentCancelled); err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	s.logger.Info("appointment cancelled", "appointment_id", id)
	return nil
}
