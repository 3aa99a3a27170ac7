package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"starshop/internal/model"
	"starshop/internal/repository"
)

type UserService struct {
	repo     *repository.UserRepository
	counters *CounterService
	now      func() time.Time
}

func NewUserService(repo *repository.UserRepository, counters *CounterService) *UserService {
	return &UserService{repo: repo, counters: counters, now: time.Now}
}

// RegisterStart records a /start: the unique-start counter and the user entry.
func (s *UserService) RegisterStart(ctx context.Context, user model.ChatUser) error {
	if err := s.counters.EnsureUser(ctx, model.CounterUniqueUsersStarted, user.ID); err != nil {
		return fmt.Errorf("count start: %w", err)
	}
	return s.repo.Update(ctx, user.ID, func(e *model.UserEntry) {
		if e.FirstSeen == 0 {
			e.FirstSeen = s.now().Unix()
		}
		e.Username = optional(user.Username)
		e.Started = true
	})
}

// MarkBuyClick records a press of the buy button.
func (s *UserService) MarkBuyClick(ctx context.Context, userID int64) error {
	if err := s.counters.EnsureUser(ctx, model.CounterBuyClicks, userID); err != nil {
		return fmt.Errorf("count buy click: %w", err)
	}
	return s.repo.Update(ctx, userID, func(e *model.UserEntry) {
		e.BuyClicks++
	})
}

func (s *UserService) MarkPurchase(ctx context.Context, userID int64) error {
	return s.repo.Update(ctx, userID, func(e *model.UserEntry) {
		e.Purchased++
	})
}

// MarkBlocked records that the user blocked or left the bot.
func (s *UserService) MarkBlocked(ctx context.Context, userID int64) error {
	countErr := s.counters.Increment(ctx, model.CounterBlockedBot, 1)
	if userID == 0 {
		return countErr
	}
	return errors.Join(countErr, s.repo.Update(ctx, userID, func(e *model.UserEntry) {
		e.Blocked++
	}))
}

// Stats counts users that reached each funnel step.
func (s *UserService) Stats(ctx context.Context) (model.UserStats, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return model.UserStats{}, err
	}
	stats := model.UserStats{Total: len(users)}
	for _, e := range users {
		if e.Started {
			stats.Started++
		}
		if e.BuyClicks > 0 {
			stats.BuyClicked++
		}
		if e.Purchased > 0 {
			stats.Purchased++
		}
		if e.Blocked > 0 {
			stats.Blocked++
		}
	}
	return stats, nil
}

// AllUserIDs returns every known user id in ascending order.
func (s *UserService) AllUserIDs(ctx context.Context) ([]int64, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(users))
	for key := range users {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
