package event

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/credchain-api/internal/model"
	"github.com/jwalitptl/credchain-api/internal/repository"
	"github.com/jwalitptl/credchain-api/pkg/event"
	"github.com/jwalitptl/credchain-api/pkg/logger"
)

// Service writes domain events to the outbox. The outbox processor
// publishes them to the broker asynchronously, so a broker outage never
// blocks a state change.
type Service struct {
	repo   repository.OutboxRepository
	logger *logger.Logger
}

func NewService(repo repository.OutboxRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// Publish stores an event envelope in the outbox. Failures are logged
// and returned; callers treat a failed publish as non-fatal.
func (s *Service) Publish(ctx context.Context, t event.Type, payload interface{}) error {
	env, err := event.NewEnvelope(t, payload)
	if err != nil {
		return fmt.Errorf("failed to build event envelope: %w", err)
	}

	outboxEvent := &model.OutboxEvent{
		ID:        env.ID,
		EventType: string(env.Type),
		Payload:   env.Payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, outboxEvent); err != nil {
		s.logger.Error(err, "failed to enqueue outbox event", "event_type", string(t))
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}
