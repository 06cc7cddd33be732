package kvstore

import (
	"fmt"
	"sync"
)

// InMemory is an in-memory implementation of Storage
type InMemory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Storage = (*InMemory)(nil)

// NewInMemory creates a new in-memory storage
func NewInMemory() *InMemory {
	return &InMemory{
		values: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key
func (m *InMemory) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is required")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value under key
func (m *InMemory) Set(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key. Removing an absent key is not an error.
func (m *InMemory) Remove(key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Len reports how many keys are stored
func (m *InMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
