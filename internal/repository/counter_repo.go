package repository

import (
	"context"
	"slices"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"
)

type CounterRepository struct {
	doc *filestore.Document[model.CountersDocument]
}

func NewCounterRepository(path string) *CounterRepository {
	return &CounterRepository{doc: filestore.NewDocument(path, model.NewCountersDocument)}
}

func (r *CounterRepository) Increment(ctx context.Context, key string, amount int64) error {
	_, err := r.doc.Update(ctx, func(d *model.CountersDocument) error {
		d.Values[key] += amount
		return nil
	})
	return err
}

// EnsureUser counts userID once under key. It reports whether the counter moved.
func (r *CounterRepository) EnsureUser(ctx context.Context, key string, userID int64) (bool, error) {
	counted := false
	_, err := r.doc.Update(ctx, func(d *model.CountersDocument) error {
		if slices.Contains(d.Seen[key], userID) {
			return nil
		}
		d.Seen[key] = append(d.Seen[key], userID)
		d.Values[key]++
		counted = true
		return nil
	})
	return counted, err
}

func (r *CounterRepository) Snapshot(ctx context.Context) (model.CountersSnapshot, error) {
	d, err := r.doc.Read(ctx)
	return d.Snapshot(), err
}
