package repository

import (
	"context"
	"strconv"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type UserRepository struct {
	doc *filestore.Document[model.UsersDocument]
}

func NewUserRepository(path string) *UserRepository {
	return &UserRepository{doc: filestore.NewDocument(path, func() model.UsersDocument {
		return model.UsersDocument{}
	})}
}

// Update applies fn to the entry of userID, creating it when absent.
func (r *UserRepository) Update(ctx context.Context, userID int64, fn func(*model.UserEntry)) error {
	_, err := r.doc.Update(ctx, func(d *model.UsersDocument) error {
		if *d == nil {
			*d = model.UsersDocument{}
		}
		key := strconv.FormatInt(userID, 10)
		entry := (*d)[key]
		fn(&entry)
		(*d)[key] = entry
		return nil
	})
	return err
}

func (r *UserRepository) GetAll(ctx context.Context) (model.UsersDocument, error) {
	return r.doc.Read(ctx)
}
