package service

import (
	"context"
	"fmt"
	"slices"

	"starshop/internal/repository"
)

// AdminService resolves the admin set: configured ids plus ids added at runtime.
type AdminService struct {
	repo       *repository.AdminRepository
	configured []int64
}

func NewAdminService(repo *repository.AdminRepository, configured []int64) *AdminService {
	return &AdminService{repo: repo, configured: slices.Clone(configured)}
}

func (s *AdminService) AdminIDs(ctx context.Context) ([]int64, error) {
	extra, err := s.repo.GetExtra(ctx)
	if err != nil {
		return nil, fmt.Errorf("load admins: %w", err)
	}
	return union(s.configured, extra), nil
}

func (s *AdminService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	ids, err := s.AdminIDs(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, userID), nil
}

// AddAdmin persists userID as an extra admin and returns the new admin set.
func (s *AdminService) AddAdmin(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	extra, err := s.repo.Add(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("save admins: %w", err)
	}
	return union(s.configured, extra), nil
}

func union(a, b []int64) []int64 {
	out := make([]int64, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}
