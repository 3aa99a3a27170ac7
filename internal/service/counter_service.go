package service

import (
	"context"

	"starshop/internal/model"
	"starshop/internal/repository"
)

// CounterService keeps the persisted funnel counters.
type CounterService struct {
	repo *repository.CounterRepository
}

func NewCounterService(repo *repository.CounterRepository) *CounterService {
	return &CounterService{repo: repo}
}

func (s *CounterService) Increment(ctx context.Context, key string, amount int64) error {
	return s.repo.Increment(ctx, key, amount)
}

// EnsureUser counts userID under key at most once.
func (s *CounterService) EnsureUser(ctx context.Context, key string, userID int64) error {
	_, err := s.repo.EnsureUser(ctx, key, userID)
	return err
}

func (s *CounterService) Snapshot(ctx context.Context) (model.CountersSnapshot, error) {
	return s.repo.Snapshot(ctx)
}
