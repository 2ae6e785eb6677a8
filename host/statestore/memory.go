// Package statestore provides reference host.StateStore backends: an
// in-process memory store for tests and single-instance deployments, and
// a Redis-backed store for durability across restarts, grounded on the
// example corpus's redis integration package (connection retry +
// health check over github.com/redis/go-redis/v9).
package statestore

import (
	"context"
	"sync"
)

// Memory is a mutex-guarded in-memory host.StateStore. State does not
// survive process restart; intended for tests and cmd/exampleprocess.
type Memory struct {
	mu      sync.RWMutex
	data    []byte
	present bool
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Read(ctx context.Context) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.present {
		return nil, false, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, true, nil
}

func (m *Memory) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data[:0], data...)
	m.present = true
	return nil
}
