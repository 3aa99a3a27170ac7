package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type BroadcastService struct {
	users     *UserService
	alerts    *repository.AlertRepository
	messenger Messenger
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewBroadcastService paces deliveries at perSecond messages per second.
func NewBroadcastService(users *UserService, alerts *repository.AlertRepository, messenger Messenger, perSecond float64, m *metrics.Metrics, logger *zap.Logger) *BroadcastService {
	if perSecond <= 0 {
		perSecond = 10
	}
	return &BroadcastService{
		users:     users,
		alerts:    alerts,
		messenger: messenger,
		limiter:   rate.NewLimiter(rate.Limit(perSecond), 1),
		metrics:   m,
		log:       logger.With(zap.String("component", "broadcast")),
	}
}

type BroadcastResult struct {
	Total  int                  `json:"total"`
	Sent   int                  `json:"sent"`
	Failed int                  `json:"failed"`
	Alerts model.AlertsDocument `json:"alerts"`
}

// Broadcast sends text to every known user. Individual failures are counted,
// not returned. If ctx ends midway the partial tally is still persisted.
func (s *BroadcastService) Broadcast(ctx context.Context, text string) (*BroadcastResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}
	ids, err := s.users.AllUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	result := &BroadcastResult{Total: len(ids)}
	var stopErr error
	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			stopErr = err
			break
		}
		if err := s.messenger.SendMessage(ctx, id, text); err != nil {
			result.Failed++
			s.metrics.Broadcast(metrics.ResultFailed)
			s.log.Debug("broadcast delivery failed", zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		result.Sent++
		s.metrics.Broadcast(metrics.ResultSuccess)
	}

	alerts, err := s.alerts.Increment(context.WithoutCancel(ctx), int64(result.Sent), int64(result.Failed))
	if err != nil {
		return result, errors.Join(stopErr, fmt.Errorf("save broadcast tally: %w", err))
	}
	result.Alerts = alerts
	s.log.Info("broadcast finished",
		zap.Int("total", result.Total),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, stopErr
}

func (s *BroadcastService) Alerts(ctx context.Context) (model.AlertsDocument, error) {
	return s.alerts.Snapshot(ctx)
}
