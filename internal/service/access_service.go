package service

import (
	"context"
	"fmt"
	"time"

	"starshop/internal/model"
	"starshop/internal/repository"
)

// AccessService tracks which users may download the product. Access is
// granted on purchase and never revoked.
type AccessService struct {
	repo *repository.AccessRepository
	now  func() time.Time
}

func NewAccessService(repo *repository.AccessRepository) *AccessService {
	return &AccessService{repo: repo, now: time.Now}
}

// Grant overwrites the user's record with has_access=true for chargeID.
func (s *AccessService) Grant(ctx context.Context, userID int64, chargeID string) (model.AccessRecord, error) {
	rec := model.AccessRecord{
		HasAccess:    true,
		LastChargeID: chargeID,
		Ts:           s.now().Unix(),
	}
	if err := s.repo.Set(ctx, userID, rec); err != nil {
		return rec, fmt.Errorf("grant access to %d: %w", userID, err)
	}
	return rec, nil
}

func (s *AccessService) HasAccess(ctx context.Context, userID int64) (bool, error) {
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec != nil && rec.HasAccess, nil
}

// Get returns nil when the user has never been granted access.
func (s *AccessService) Get(ctx context.Context, userID int64) (*model.AccessRecord, error) {
	return s.repo.Get(ctx, userID)
}
