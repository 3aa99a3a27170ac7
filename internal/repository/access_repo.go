package repository

import (
	"context"
	"strconv"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type AccessRepository struct {
	doc *filestore.Document[model.AccessDocument]
}

func NewAccessRepository(path string) *AccessRepository {
	return &AccessRepository{doc: filestore.NewDocument(path, func() model.AccessDocument {
		return model.AccessDocument{}
	})}
}

// Set overwrites the access record of userID.
func (r *AccessRepository) Set(ctx context.Context, userID int64, rec model.AccessRecord) error {
	_, err := r.doc.Update(ctx, func(d *model.AccessDocument) error {
		if *d == nil {
			*d = model.AccessDocument{}
		}
		(*d)[strconv.FormatInt(userID, 10)] = rec
		return nil
	})
	return err
}

// Get returns nil when userID has no record.
func (r *AccessRepository) Get(ctx context.Context, userID int64) (*model.AccessRecord, error) {
	d, err := r.doc.Read(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := d[strconv.FormatInt(userID, 10)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
