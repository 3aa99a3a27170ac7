package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// lockRetryInterval is how long a blocked caller sleeps between non-blocking flock attempts.
const lockRetryInterval = 5 * time.Millisecond

// lockedFile is an open file holding an exclusive flock.
//
// flock locks belong to the open file description, so two goroutines of the
// same process that open the file separately exclude each other exactly like
// two processes do.
type lockedFile struct {
	*os.File
}

// openLocked opens path with flag, creating parent directories, and blocks
// until an exclusive lock is held or ctx is done.
func openLocked(ctx context.Context, path string, flag int) (*lockedFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, err
	}

	if err := lock(ctx, f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &lockedFile{File: f}, nil
}

func lock(ctx context.Context, f *os.File) error {
	fd := int(f.Fd())
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(ErrLockTimeout, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

// Close releases the lock and closes the file.
func (f *lockedFile) Close() error {
	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.File.Close()
	if unlockErr != nil || closeErr != nil {
		return errors.Join(unlockErr, closeErr)
	}
	return nil
}
