package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// Log is an append-only file of JSON records, one per line.
//
// Every call opens the file, takes an exclusive flock, does its work and
// releases the lock. Nothing is cached between calls.
type Log[T any] struct {
	path string
	log  *zap.Logger
}

// NewLog returns a log stored at path. The file is created on first append.
func NewLog[T any](path string, logger *zap.Logger) *Log[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log[T]{
		path: path,
		log:  logger.With(zap.String("component", "filestore"), zap.String("path", path)),
	}
}

// Path returns the backing file path.
func (l *Log[T]) Path() string {
	return l.path
}

// Append writes rec as a single line and syncs it before the lock is released.
func (l *Log[T]) Append(ctx context.Context, rec T) error {
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}

	f, err := openLocked(ctx, l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND)
	if err != nil {
		return err
	}
	defer f.Close()

	return l.writeLine(f, line)
}

// AppendUnless scans the log and appends rec only when no existing record
// satisfies exists. Check and append happen under one lock, so concurrent
// callers racing on the same key append at most once.
func (l *Log[T]) AppendUnless(ctx context.Context, rec T, exists func(T) bool) (bool, error) {
	line, err := encodeLine(rec)
	if err != nil {
		return false, err
	}

	f, err := openLocked(ctx, l.path, os.O_RDWR|os.O_CREATE|os.O_APPEND)
	if err != nil {
		return false, err
	}
	defer f.Close()

	found := false
	err = l.scan(f, func(existing T) bool {
		if exists(existing) {
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}

	if err := l.writeLine(f, line); err != nil {
		return false, err
	}
	return true, nil
}

// ReadAll returns every decodable record in write order. When limit > 0 only
// the last limit records are returned. A missing file reads as empty.
func (l *Log[T]) ReadAll(ctx context.Context, limit int) ([]T, error) {
	var records []T
	err := l.Scan(ctx, func(rec T) bool {
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

// Scan calls fn for each record in write order until fn returns false.
func (l *Log[T]) Scan(ctx context.Context, fn func(T) bool) error {
	f, err := openLocked(ctx, l.path, os.O_RDONLY)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	return l.scan(f, fn)
}

func (l *Log[T]) scan(r io.Reader, fn func(T) bool) error {
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read %s: %w", l.path, readErr)
		}
		if len(raw) > 0 {
			lineNo++
			rec, err := decodeLine[T](raw)
			switch {
			case errors.Is(err, errBlankLine):
			case err != nil:
				l.log.Warn("skipping malformed record", zap.Int("line", lineNo), zap.Error(err))
			default:
				if !fn(rec) {
					return nil
				}
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

// writeLine appends line, first terminating a torn tail left by a crash so
// the new record never merges into a partial one.
func (l *Log[T]) writeLine(f *lockedFile, line []byte) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", l.path, err)
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("read tail of %s: %w", l.path, err)
		}
		if last[0] != '\n' {
			l.log.Warn("terminating torn tail line")
			line = append([]byte{'\n'}, line...)
		}
	}

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append %s: %w", l.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", l.path, err)
	}
	return nil
}

var errBlankLine = errors.New("blank line")

func encodeLine(rec any) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return append(data, '\n'), nil
}

func decodeLine[T any](raw []byte) (T, error) {
	var rec T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return rec, errBlankLine
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return rec, nil
}

// Tail returns the last n raw lines of the file at path, newline included.
// A missing file yields no lines.
func Tail(ctx context.Context, path string, n int) ([]string, error) {
	f, err := openLocked(ctx, path, os.O_RDONLY)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	reader := bufio.NewReader(f)
	for {
		raw, readErr := reader.ReadString('\n')
		if len(raw) > 0 {
			lines = append(lines, raw)
			if n > 0 && len(lines) > n {
				lines = lines[1:]
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return lines, nil
			}
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
	}
}
