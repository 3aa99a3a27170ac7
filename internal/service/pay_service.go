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

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PayService turns invoice requests and payment notifications into durable
// records. Idempotency rests on the purchase log alone: a charge id is
// checked and appended under one file lock.
type PayService struct {
	purchases   *repository.PurchaseRepository
	orders      *repository.OrderRepository
	counters    *CounterService
	settings    *SettingsService
	users       *UserService
	access      *AccessService
	outbox      *OutboxService
	notifier    *Notifier
	messenger   Messenger
	redisClient redis.Cmdable
	metrics     *metrics.Metrics
	log         *zap.Logger
	now         func() time.Time
}

// PayServiceDeps lists the collaborators of PayService. RedisClient,
// Outbox, Notifier and Metrics may be nil.
type PayServiceDeps struct {
	Repos       *repository.Repositories
	Counters    *CounterService
	Settings    *SettingsService
	Users       *UserService
	Access      *AccessService
	Outbox      *OutboxService
	Notifier    *Notifier
	Messenger   Messenger
	RedisClient redis.Cmdable
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
}

func NewPayService(d PayServiceDeps) *PayService {
	return &PayService{
		purchases:   d.Repos.Purchases,
		orders:      d.Repos.Orders,
		counters:    d.Counters,
		settings:    d.Settings,
		users:       d.Users,
		access:      d.Access,
		outbox:      d.Outbox,
		notifier:    d.Notifier,
		messenger:   d.Messenger,
		redisClient: d.RedisClient,
		metrics:     d.Metrics,
		log:         d.Logger.With(zap.String("component", "payments")),
		now:         time.Now,
	}
}

// CreateInvoice records a created order and sends an invoice for the current
// price. A transport failure is recorded as an error order and returned
// wrapped in ErrTransport.
func (s *PayService) CreateInvoice(ctx context.Context, user model.ChatUser) (*model.OrderRecord, error) {
	offer := s.settings.Current()
	if !offer.SalesEnabled {
		return nil, ErrSalesDisabled
	}

	if err := s.users.MarkBuyClick(ctx, user.ID); err != nil {
		s.log.Warn("mark buy click failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	price := offer.PriceStars()
	order := model.OrderRecord{
		UserID:  user.ID,
		Payload: offer.Payload,
		Amount:  price,
		Status:  model.OrderStatusCreated,
		Ts:      s.now().Unix(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}

	invoice := model.Invoice{
		Title:       offer.Title,
		Description: offer.Description,
		Payload:     offer.Payload,
		Currency:    model.CurrencyStars,
		Label:       "Guide",
		Amount:      price,
	}
	if err := s.messenger.SendInvoice(ctx, user.ID, invoice); err != nil {
		s.log.Error("send invoice failed", zap.Int64("user_id", user.ID), zap.Error(err))
		s.metrics.Invoice(metrics.ResultFailed)

		reason := err.Error()
		failed := order
		failed.Status = model.OrderStatusError
		failed.Reason = &reason
		failed.Ts = s.now().Unix()
		if err := s.orders.Create(ctx, failed); err != nil {
			s.log.Error("record failed order", zap.Error(err))
		}
		if err := s.counters.Increment(ctx, model.CounterPurchasesFail, 1); err != nil {
			s.log.Warn("count failed purchase", zap.Error(err))
		}
		return &failed, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	s.metrics.Invoice(metrics.ResultSuccess)
	return &order, nil
}

// ConfirmPreCheckout approves every pre-checkout query. There is no stock
// or per-user limit to check.
func (s *PayService) ConfirmPreCheckout(ctx context.Context, queryID string) error {
	if err := s.messenger.AnswerPreCheckout(ctx, queryID, true); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}

// HandleSuccessfulPayment records the purchase for payment.ChargeID exactly
// once. A replayed notification returns ErrDuplicateCharge and changes
// nothing. Once the purchase is durable the remaining steps run even if one
// of them fails; their errors are joined into the result.
func (s *PayService) HandleSuccessfulPayment(ctx context.Context, user model.ChatUser, payment model.StarPayment) (*model.PurchaseRecord, error) {
	if payment.ChargeID == "" {
		return nil, ErrInvalidPayment
	}

	if s.redisClient != nil {
		chargeLock := lock.NewChargeLock(s.redisClient, payment.ChargeID)
		if err := chargeLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
			return nil, fmt.Errorf("lock charge %s: %w", payment.ChargeID, err)
		}
		defer func() {
			if err := chargeLock.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release charge lock", zap.String("key", chargeLock.Key()), zap.Error(err))
			}
		}()
	}

	offer := s.settings.Current()
	amount := offer.PriceStars()
	if payment.Total > 0 && payment.Total != amount {
		s.log.Warn("payment total differs from configured price",
			zap.String("charge_id", payment.ChargeID),
			zap.Int64("total", payment.Total),
			zap.Int64("price", amount))
	}
	payload := payment.Payload
	if payload == "" {
		payload = offer.Payload
	}

	purchase := model.PurchaseRecord{
		UserID:   user.ID,
		ChargeID: payment.ChargeID,
		Amount:   amount,
		Payload:  payload,
		Ts:       s.now().Unix(),
	}
	if err := s.purchases.Create(ctx, purchase); err != nil {
		if errors.Is(err, repository.ErrDuplicateCharge) {
			s.log.Info("duplicate payment ignored", zap.String("charge_id", payment.ChargeID), zap.Int64("user_id", user.ID))
			s.metrics.Payment(metrics.ResultDuplicate)
			return nil, ErrDuplicateCharge
		}
		s.metrics.Payment(metrics.ResultFailed)
		return nil, fmt.Errorf("record purchase: %w", err)
	}
	s.metrics.Payment(metrics.ResultSuccess)
	s.log.Info("purchase recorded",
		zap.String("charge_id", purchase.ChargeID),
		zap.Int64("user_id", purchase.UserID),
		zap.Int64("amount", purchase.Amount))

	var errs []error
	order := model.OrderRecord{
		UserID:  user.ID,
		Payload: payload,
		Amount:  amount,
		Status:  model.OrderStatusSuccess,
		Ts:      purchase.Ts,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		errs = append(errs, fmt.Errorf("record order: %w", err))
	}
	if _, err := s.access.Grant(ctx, user.ID, payment.ChargeID); err != nil {
		errs = append(errs, err)
	}
	if err := s.counters.Increment(ctx, model.CounterPurchasesSuccess, 1); err != nil {
		errs = append(errs, fmt.Errorf("count purchase: %w", err))
	}
	if err := s.users.MarkPurchase(ctx, user.ID); err != nil {
		errs = append(errs, fmt.Errorf("mark purchase: %w", err))
	}
	err := s.outbox.Enqueue(ctx, model.PaymentEvent{
		Event:    model.EventPurchaseCompleted,
		UserID:   purchase.UserID,
		ChargeID: purchase.ChargeID,
		Amount:   purchase.Amount,
		Payload:  purchase.Payload,
		Ts:       purchase.Ts,
	})
	if err != nil {
		errs = append(errs, err)
	}

	if err := s.messenger.SendDownload(ctx, user.ID, offer.DownloadURL()); err != nil {
		s.log.Warn("send download failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	s.notifier.Notify(ctx, fmt.Sprintf("💰 Нова покупка: user %d, %d ⭐️, charge %s", user.ID, amount, payment.ChargeID))

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		s.log.Error("post-purchase steps failed", zap.String("charge_id", payment.ChargeID), zap.Error(joined))
		return &purchase, joined
	}
	return &purchase, nil
}
