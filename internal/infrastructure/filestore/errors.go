package filestore

import "errors"

var (
	// ErrMalformedRecord marks a log line that could not be decoded. Reads skip such lines.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrLockTimeout is returned when the context ends before the file lock is acquired.
	ErrLockTimeout = errors.New("file lock not acquired")
)
