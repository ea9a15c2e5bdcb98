package kvstore

import "context"

// Substrate is one durable key-value storage backend.
// Implementations must be safe for concurrent use.
type Substrate interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound when the key is absent or holds an empty value.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value.
	// Storing an empty value is equivalent to Delete.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
