package service

import (
	"context"
	"fmt"
	"time"

	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"

	"go.uber.org/zap"
)

// LedgerService owns balance computation. Balances are never stored: they
// are replayed from the purchase and ledger logs on every query.
type LedgerService struct {
	purchases *repository.PurchaseRepository
	ledger    *repository.LedgerRepository
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

func NewLedgerService(purchases *repository.PurchaseRepository, ledger *repository.LedgerRepository, m *metrics.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		purchases: purchases,
		ledger:    ledger,
		metrics:   m,
		log:       logger.With(zap.String("component", "ledger")),
		now:       time.Now,
	}
}

// EntryOptions carries the optional fields of a ledger entry.
type EntryOptions struct {
	ChargeID string
	Comment  string
}

// AddEntry appends an adjustment after normalising its sign: withdrawals
// always debit, awards always credit, corrections and refunds keep the sign
// they were given.
func (s *LedgerService) AddEntry(ctx context.Context, userID, amount int64, kind model.LedgerKind, opts EntryOptions) (model.LedgerRecord, error) {
	if !kind.Valid() {
		return model.LedgerRecord{}, fmt.Errorf("%w: %q", ErrInvalidLedgerKind, kind)
	}

	rec := model.LedgerRecord{
		UserID:   userID,
		Amount:   kind.Normalize(amount),
		Kind:     kind,
		ChargeID: optional(opts.ChargeID),
		Comment:  optional(opts.Comment),
		Ts:       s.now().Unix(),
	}
	if err := s.ledger.Create(ctx, rec); err != nil {
		return rec, fmt.Errorf("append ledger entry: %w", err)
	}

	s.metrics.LedgerEntry(string(kind))
	s.log.Info("ledger entry added",
		zap.Int64("user_id", userID),
		zap.Int64("amount", rec.Amount),
		zap.String("kind", string(kind)))
	return rec, nil
}

// BalanceOf is the sum of the user's purchases plus the sum of the user's
// ledger entries.
func (s *LedgerService) BalanceOf(ctx context.Context, userID int64) (int64, error) {
	return s.sum(ctx, func(id int64) bool { return id == userID })
}

// TotalBalance is the same sum over all users.
func (s *LedgerService) TotalBalance(ctx context.Context) (int64, error) {
	return s.sum(ctx, func(int64) bool { return true })
}

func (s *LedgerService) sum(ctx context.Context, match func(int64) bool) (int64, error) {
	var total int64
	err := s.purchases.Scan(ctx, func(rec model.PurchaseRecord) bool {
		if match(rec.UserID) {
			total += rec.Amount
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("replay purchases: %w", err)
	}
	err = s.ledger.Scan(ctx, func(rec model.LedgerRecord) bool {
		if match(rec.UserID) {
			total += rec.Amount
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("replay ledger: %w", err)
	}
	return total, nil
}

// Recent returns the last limit ledger entries in write order.
func (s *LedgerService) Recent(ctx context.Context, limit int) ([]model.LedgerRecord, error) {
	return s.ledger.List(ctx, limit)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
