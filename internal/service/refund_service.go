package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"starshop/internal/infrastructure/lock"
	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"
	"starshop/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type RefundService struct {
	purchases   *repository.PurchaseRepository
	ledger      *repository.LedgerRepository
	settings    *SettingsService
	outbox      *OutboxService
	notifier    *Notifier
	messenger   Messenger
	redisClient redis.Cmdable
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

type RefundServiceDeps struct {
	Repos       *repository.Repositories
	Settings    *SettingsService
	Outbox      *OutboxService
	Notifier    *Notifier
	Messenger   Messenger
	RedisClient redis.Cmdable
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func NewRefundService(d RefundServiceDeps) *RefundService {
	return &RefundService{
		purchases:   d.Repos.Purchases,
		ledger:      d.Repos.Ledger,
		settings:    d.Settings,
		outbox:      d.Outbox,
		notifier:    d.Notifier,
		messenger:   d.Messenger,
		redisClient: d.RedisClient,
		metrics:     d.Metrics,
		log:         d.Logger.With(zap.String("component", "refunds")),
		now:         time.Now,
	}
}

type RefundRequest struct {
	ChargeID    string
	RequestedBy int64
	Reason      string
}

type RefundResponse struct {
	RefundNo string `json:"refund_no"`
	ChargeID string `json:"charge_id"`
	UserID   int64  `json:"user_id"`
	Amount   int64  `json:"amount"`
	Refunded bool   `json:"refunded"`
}

// Refund returns the stars of a recorded charge through the provider and
// debits the buyer by the current price. Access is left in place.
func (s *RefundService) Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error) {
	purchase, err := s.purchases.GetByChargeID(ctx, req.ChargeID)
	if err != nil {
		if errors.Is(err, repository.ErrPurchaseNotFound) {
			s.log.Warn("refund for unknown charge", zap.String("charge_id", req.ChargeID))
			s.metrics.Refund(metrics.ResultNotFound)
			return nil, ErrChargeNotFound
		}
		return nil, fmt.Errorf("look up purchase: %w", err)
	}

	if s.redisClient != nil {
		refundLock := lock.NewRefundLock(s.redisClient, req.ChargeID)
		if err := refundLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("lock refund %s: %w", req.ChargeID, err)
		}
		defer func() {
			if err := refundLock.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release refund lock", zap.String("key", refundLock.Key()), zap.Error(err))
			}
		}()
	}

	refunded, err := s.ledger.ExistsForCharge(ctx, req.ChargeID, model.LedgerKindRefund)
	if err != nil {
		return nil, fmt.Errorf("check refund history: %w", err)
	}
	if refunded {
		s.metrics.Refund(metrics.ResultDuplicate)
		return nil, ErrAlreadyRefunded
	}

	if err := s.messenger.RefundStarPayment(ctx, purchase.UserID, req.ChargeID); err != nil {
		s.log.Error("provider refused refund", zap.String("charge_id", req.ChargeID), zap.Error(err))
		s.metrics.Refund(metrics.ResultRejected)
		return nil, fmt.Errorf("%w: %v", ErrRefundRejected, err)
	}

	// The debit uses the price at refund time, not the purchase amount.
	entry := model.LedgerRecord{
		UserID:   purchase.UserID,
		Amount:   -s.settings.Current().PriceStars(),
		Kind:     model.LedgerKindRefund,
		ChargeID: optional(req.ChargeID),
		Comment:  optional(req.Reason),
		Ts:       s.now().Unix(),
	}
	appended, err := s.ledger.CreateUnlessCharged(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("record refund: %w", err)
	}
	if !appended {
		s.metrics.Refund(metrics.ResultDuplicate)
		return nil, ErrAlreadyRefunded
	}
	s.metrics.Refund(metrics.ResultSuccess)
	s.metrics.LedgerEntry(string(model.LedgerKindRefund))

	resp := &RefundResponse{
		RefundNo: idgen.GenerateRefundNo(),
		ChargeID: req.ChargeID,
		UserID:   purchase.UserID,
		Amount:   entry.Amount,
		Refunded: true,
	}
	s.log.Info("refund completed",
		zap.String("refund_no", resp.RefundNo),
		zap.String("charge_id", resp.ChargeID),
		zap.Int64("user_id", resp.UserID),
		zap.Int64("amount", resp.Amount),
		zap.Int64("requested_by", req.RequestedBy))

	err = s.outbox.Enqueue(ctx, model.PaymentEvent{
		Event:    model.EventPurchaseRefunded,
		UserID:   resp.UserID,
		ChargeID: resp.ChargeID,
		Amount:   resp.Amount,
		RefundNo: resp.RefundNo,
		Ts:       entry.Ts,
	})
	if err != nil {
		s.log.Error("enqueue refund event", zap.String("charge_id", resp.ChargeID), zap.Error(err))
	}
	s.notifier.Notify(ctx, fmt.Sprintf("↩️ Повернення: user %d, charge %s", resp.UserID, resp.ChargeID))
	return resp, nil
}
