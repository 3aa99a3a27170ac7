package repository

import (
	"context"
	"slices"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type AdminRepository struct {
	doc *filestore.Document[model.AdminsDocument]
}

func NewAdminRepository(path string) *AdminRepository {
	return &AdminRepository{doc: filestore.NewDocument(path, func() model.AdminsDocument {
		return model.AdminsDocument{Extra: []int64{}}
	})}
}

func (r *AdminRepository) GetExtra(ctx context.Context) ([]int64, error) {
	d, err := r.doc.Read(ctx)
	return d.Extra, err
}

// Add stores userID in the extra list, kept sorted and unique.
func (r *AdminRepository) Add(ctx context.Context, userID int64) ([]int64, error) {
	d, err := r.doc.Update(ctx, func(d *model.AdminsDocument) error {
		if !slices.Contains(d.Extra, userID) {
			d.Extra = append(d.Extra, userID)
		}
		slices.Sort(d.Extra)
		return nil
	})
	return d.Extra, err
}
