package repository

import (
	"context"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"

	"go.uber.org/zap"
)

type LedgerRepository struct {
	log *filestore.Log[model.LedgerRecord]
}

func NewLedgerRepository(path string, logger *zap.Logger) *LedgerRepository {
	return &LedgerRepository{log: filestore.NewLog[model.LedgerRecord](path, logger)}
}

func (r *LedgerRepository) Create(ctx context.Context, rec model.LedgerRecord) error {
	return r.log.Append(ctx, rec)
}

// CreateUnlessCharged appends rec unless an entry of the same kind already
// references rec.ChargeID. It reports whether rec was appended.
func (r *LedgerRepository) CreateUnlessCharged(ctx context.Context, rec model.LedgerRecord) (bool, error) {
	if rec.ChargeID == nil {
		return true, r.log.Append(ctx, rec)
	}
	return r.log.AppendUnless(ctx, rec, func(existing model.LedgerRecord) bool {
		return existing.Kind == rec.Kind && existing.ChargeID != nil && *existing.ChargeID == *rec.ChargeID
	})
}

func (r *LedgerRepository) ExistsForCharge(ctx context.Context, chargeID string, kind model.LedgerKind) (bool, error) {
	found := false
	err := r.log.Scan(ctx, func(rec model.LedgerRecord) bool {
		if rec.Kind == kind && rec.ChargeID != nil && *rec.ChargeID == chargeID {
			found = true
			return false
		}
		return true
	})
	return found, err
}

func (r *LedgerRepository) List(ctx context.Context, limit int) ([]model.LedgerRecord, error) {
	return r.log.ReadAll(ctx, limit)
}

func (r *LedgerRepository) Scan(ctx context.Context, fn func(model.LedgerRecord) bool) error {
	return r.log.Scan(ctx, fn)
}
