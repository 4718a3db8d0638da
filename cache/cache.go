// Package cache provides key/value stores the container persists its
// definitions through: in-memory, file-backed, Redis, and SQLite. Each is
// a thin adapter over its backend; the container only ever sees opaque
// bytes behind the container.Store interface.
package cache

import (
	"context"
	"sync"

	"github.com/km-arc/go-injector/container"
)

// Compile-time interface checks.
var (
	_ container.Store = (*Memory)(nil)
	_ container.Store = (*File)(nil)
	_ container.Store = (*Redis)(nil)
	_ container.Store = (*SQLite)(nil)
)

// Memory is a process-local store. Useful in tests and in single-run
// processes that have nothing to persist across restarts.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[key] = stored
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string][]byte)
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
