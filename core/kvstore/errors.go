package kvstore

import "errors"

var (
	// ErrNotFound is returned when a key is absent or holds an empty value.
	ErrNotFound = errors.New("key not found")
	// ErrUnavailable is returned when the underlying storage backend cannot
	// be reached (I/O failure, permission denied, backend down).
	ErrUnavailable = errors.New("substrate unavailable")
)
