package kvstore

import (
	"context"
	"sync"
)

// Memory is an in-process Substrate used in tests and as the backing store
// for ephemeral (web preview) deployments. The zero value is not usable;
// construct with NewMemory.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string

	// failNext simulates substrate failures in tests.
	failNext error
}

// NewMemory creates an empty in-memory substrate.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

// Get implements Substrate.
func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failNext != nil {
		return "", m.failNext
	}

	v, ok := m.values[key]
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Substrate. An empty value deletes the key.
func (m *Memory) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		return m.failNext
	}

	if value == "" {
		delete(m.values, key)
		return nil
	}
	m.values[key] = value
	return nil
}

// Delete implements Substrate.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		return m.failNext
	}

	delete(m.values, key)
	return nil
}

// FailWith makes every subsequent operation return err until called with nil.
// Test hook for exercising fallback paths.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Len returns the number of stored keys. Test hook.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
