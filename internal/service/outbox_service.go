package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"starshop/internal/model"
	"starshop/internal/repository"
	"starshop/pkg/idgen"
)

// OutboxService queues payment events for the outbox sender. With an empty
// topic publishing is disabled and Enqueue does nothing.
type OutboxService struct {
	repo  *repository.OutboxRepository
	topic string
	now   func() time.Time
}

func NewOutboxService(repo *repository.OutboxRepository, topic string) *OutboxService {
	return &OutboxService{repo: repo, topic: topic, now: time.Now}
}

func (s *OutboxService) Enabled() bool {
	return s != nil && s.topic != ""
}

func (s *OutboxService) Enqueue(ctx context.Context, event model.PaymentEvent) error {
	if !s.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Event, err)
	}
	msg := model.OutboxMessage{
		Key:     idgen.GenerateEventKey(),
		Topic:   s.topic,
		Event:   event.Event,
		Payload: string(payload),
		Ts:      s.now().Unix(),
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}
