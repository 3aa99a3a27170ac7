package repository

import (
	"context"
	"errors"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"

	"go.uber.org/zap"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrDuplicateCharge  = errors.New("charge already recorded")
)

type PurchaseRepository struct {
	log *filestore.Log[model.PurchaseRecord]
}

func NewPurchaseRepository(path string, logger *zap.Logger) *PurchaseRepository {
	return &PurchaseRepository{log: filestore.NewLog[model.PurchaseRecord](path, logger)}
}

// Create appends rec unless a purchase with the same charge id exists, in
// which case it returns ErrDuplicateCharge.
func (r *PurchaseRepository) Create(ctx context.Context, rec model.PurchaseRecord) error {
	appended, err := r.log.AppendUnless(ctx, rec, func(existing model.PurchaseRecord) bool {
		return existing.ChargeID == rec.ChargeID
	})
	if err != nil {
		return err
	}
	if !appended {
		return ErrDuplicateCharge
	}
	return nil
}

func (r *PurchaseRepository) GetByChargeID(ctx context.Context, chargeID string) (*model.PurchaseRecord, error) {
	var found *model.PurchaseRecord
	err := r.log.Scan(ctx, func(rec model.PurchaseRecord) bool {
		if rec.ChargeID == chargeID {
			found = &rec
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrPurchaseNotFound
	}
	return found, nil
}

func (r *PurchaseRepository) Exists(ctx context.Context, chargeID string) (bool, error) {
	_, err := r.GetByChargeID(ctx, chargeID)
	if errors.Is(err, ErrPurchaseNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns the last limit purchases, all when limit <= 0.
func (r *PurchaseRepository) List(ctx context.Context, limit int) ([]model.PurchaseRecord, error) {
	return r.log.ReadAll(ctx, limit)
}

func (r *PurchaseRepository) Scan(ctx context.Context, fn func(model.PurchaseRecord) bool) error {
	return r.log.Scan(ctx, fn)
}
