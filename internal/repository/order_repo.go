package repository

import (
	"context"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"

	"go.uber.org/zap"
)

type OrderRepository struct {
	log *filestore.Log[model.OrderRecord]
}

func NewOrderRepository(path string, logger *zap.Logger) *OrderRepository {
	return &OrderRepository{log: filestore.NewLog[model.OrderRecord](path, logger)}
}

func (r *OrderRepository) Create(ctx context.Context, rec model.OrderRecord) error {
	return r.log.Append(ctx, rec)
}

func (r *OrderRepository) List(ctx context.Context, limit int) ([]model.OrderRecord, error) {
	return r.log.ReadAll(ctx, limit)
}
