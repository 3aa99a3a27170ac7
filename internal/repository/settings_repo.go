package repository

import (
	"context"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type SettingsRepository struct {
	doc *filestore.Document[model.SettingsDocument]
}

func NewSettingsRepository(path string) *SettingsRepository {
	return &SettingsRepository{doc: filestore.NewDocument[model.SettingsDocument](path, nil)}
}

func (r *SettingsRepository) Path() string {
	return r.doc.Path()
}

func (r *SettingsRepository) Get(ctx context.Context) (model.SettingsDocument, error) {
	return r.doc.Read(ctx)
}

func (r *SettingsRepository) Update(ctx context.Context, fn func(*model.SettingsDocument) error) (model.SettingsDocument, error) {
	return r.doc.Update(ctx, fn)
}
