package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStateStore keeps OAuth state tokens in process memory.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
}

// NewMemoryStateStore creates an empty state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time)}
}

func (m *MemoryStateStore) Generate(ctx context.Context, ttl time.Duration) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state] = time.Now().Add(ttl)
	return state, nil
}

func (m *MemoryStateStore) Validate(ctx context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.states[state]
	if !ok {
		return false, nil
	}
	delete(m.states, state)
	return time.Now().Before(exp), nil
}

func (m *MemoryStateStore) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for state, exp := range m.states {
		if now.After(exp) {
			delete(m.states, state)
		}
	}
	return nil
}

func (m *MemoryStateStore) Close() error { return nil }

var _ StateStore = (*MemoryStateStore)(nil)
