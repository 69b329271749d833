// Package convstate keeps the small per-session key/value bag that carries
// a conversation across turns.
package convstate

import (
	"context"
	"sync"
)

const (
	KeyAskedForName   = "asked_for_name"
	KeyPendingStandup = "pending_standup"
)

// Store is scoped by session key. A missing key is ("", false, nil).
type Store interface {
	Get(ctx context.Context, session, key string) (string, bool, error)
	Set(ctx context.Context, session, key, value string) error
	Clear(ctx context.Context, session string, keys ...string) error
}

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, session, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[session][key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, session, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bag, ok := m.data[session]
	if !ok {
		bag = make(map[string]string)
		m.data[session] = bag
	}
	bag[key] = value
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, session string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bag := m.data[session]
	for _, k := range keys {
		delete(bag, k)
	}
	if len(bag) == 0 {
		delete(m.data, session)
	}
	return nil
}
