package repository

import (
	"context"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type ContentRepository struct {
	doc *filestore.Document[model.ContentDocument]
}

func NewContentRepository(path string) *ContentRepository {
	return &ContentRepository{doc: filestore.NewDocument[model.ContentDocument](path, nil)}
}

func (r *ContentRepository) Get(ctx context.Context) (model.ContentDocument, error) {
	return r.doc.Read(ctx)
}

func (r *ContentRepository) Update(ctx context.Context, fn func(*model.ContentDocument) error) error {
	_, err := r.doc.Update(ctx, fn)
	return err
}
