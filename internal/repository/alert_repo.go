package repository

import (
	"context"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type AlertRepository struct {
	doc *filestore.Document[model.AlertsDocument]
}

func NewAlertRepository(path string) *AlertRepository {
	return &AlertRepository{doc: filestore.NewDocument[model.AlertsDocument](path, nil)}
}

func (r *AlertRepository) Increment(ctx context.Context, sent, failed int64) (model.AlertsDocument, error) {
	return r.doc.Update(ctx, func(d *model.AlertsDocument) error {
		d.Sent += sent
		d.Failed += failed
		return nil
	})
}

func (r *AlertRepository) Snapshot(ctx context.Context) (model.AlertsDocument, error) {
	return r.doc.Read(ctx)
}
