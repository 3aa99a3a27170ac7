package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Document is a whole-file JSON value that is replaced in place.
//
// Reads and writes lock the sidecar file "<path>.lock". Writes go to a temp
// file that is renamed over the document, so readers never observe a
// partially written document.
type Document[T any] struct {
	path     string
	defaults func() T
}

// NewDocument returns a document stored at path. defaults builds the value
// returned when the file is absent or empty, and the base that stored JSON
// is decoded over, so missing fields keep their default.
func NewDocument[T any](path string, defaults func() T) *Document[T] {
	if defaults == nil {
		defaults = func() T {
			var zero T
			return zero
		}
	}
	return &Document[T]{path: path, defaults: defaults}
}

// Path returns the backing file path.
func (d *Document[T]) Path() string {
	return d.path
}

// Read returns the stored document.
func (d *Document[T]) Read(ctx context.Context) (T, error) {
	f, err := d.lock(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()

	return d.read()
}

// Write replaces the stored document with v.
func (d *Document[T]) Write(ctx context.Context, v T) error {
	f, err := d.lock(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	return d.write(v)
}

// Update runs a read-modify-write cycle under a single lock. If fn returns
// an error nothing is written.
func (d *Document[T]) Update(ctx context.Context, fn func(*T) error) (T, error) {
	f, err := d.lock(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()

	v, err := d.read()
	if err != nil {
		return v, err
	}
	if err := fn(&v); err != nil {
		return v, err
	}
	if err := d.write(v); err != nil {
		return v, err
	}
	return v, nil
}

func (d *Document[T]) lock(ctx context.Context) (*lockedFile, error) {
	return openLocked(ctx, d.path+".lock", os.O_RDWR|os.O_CREATE)
}

func (d *Document[T]) read() (T, error) {
	v := d.defaults()

	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return v, fmt.Errorf("read %s: %w", d.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.path, err)
	}
	return v, nil
}

func (d *Document[T]) write(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", d.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", d.path, err)
	}
	return nil
}
