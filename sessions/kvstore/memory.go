package kvstore

import (
	"maps"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-memory Store, used by tests and ephemeral runs
type Memory struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
	}
}

func (m *Memory) Get(key string) (string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Set(key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Delete(keys ...string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Snapshot returns a copy of every stored value
func (m *Memory) Snapshot() map[string]string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return maps.Clone(m.values)
}
