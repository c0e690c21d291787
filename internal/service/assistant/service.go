package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	"github.com/jwalitptl/credchain-api/internal/service/oracle"
	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// AssistantService answers a patient's questions about their own
// history. The context handed to the oracle is built strictly from the
// asking patient's data; the oracle never sees another patient's rows.
type AssistantService interface {
	Converse(ctx context.Context, patientID uuid.UUID, query string) (string, error)
}

type Service struct {
	records      repository.RecordRepository
	appointments repository.AppointmentRepository
	oracle       oracle.Scorer
	logger       *logger.Logger
}

func NewService(
	records repository.RecordRepository,
	appointments repository.AppointmentRepository,
	o oracle.Scorer,
	log *logger.Logger,
) *Service {
	return &Service{records: records, appointments: appointments, oracle: o, logger: log}
}

func (s *Service) Converse(ctx context.Context, patientID uuid.UUID, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", apperrors.NewBadRequest("query is required", nil)
	}

	contextText, err := s.buildContext(ctx, patientID)
	if err != nil {
		return "", err
	}

	reply, err := s.oracle.Converse(ctx, contextText, query)
	if err != nil {
		return "", fmt.Errorf("assistant unavailable: %w", err)
	}
	return reply, nil
}

func (s *Service) buildContext(ctx context.Context, patientID uuid.UUID) (string, error) {
	records, err := s.records.ListByPatient(ctx, patientID)
	if err != nil {
		return "", fmt.Errorf("failed to load patient records: %w", err)
	}
	appointments, err := s.appointments.List(ctx, &model.AppointmentFilters{PatientID: patientID})
	if err != nil {
		return "", fmt.Errorf("failed to load appointments: %w", err)
	}

	var b strings.Builder
	b.WriteString("Patient visit history:\n")
	for _, a := range appointments {
		fmt.Fprintf(&b, "- %s appointment (%s), department %s\n",
			a.ScheduledAt.Format("2006-01-02"), a.Status, a.Department)
	}
	b.WriteString("Clinical records:\n")
	for _, r := range records {
		fmt.Fprintf(&b, "- diagnosis: %s", r.Diagnosis)
		if r.Prescription != "" {
			fmt.Fprintf(&b, "; prescription: %s (%s)", r.Prescription, r.PharmaStatus)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
