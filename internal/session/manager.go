// Package session owns the per-tab conversation identifier.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Key is the storage key the identifier lives under
const Key = "session_id"

// Manager hands out the session identifier for one tab
type Manager struct {
	storage Storage
	mu      sync.Mutex
	newID   func() string
}

// NewManager creates a manager over the given tab storage
func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
		newID:   func() string { return uuid.New().String() },
	}
}

// GetOrCreateSessionID returns the stored identifier, allocating and storing
// a fresh one on first use.
func (m *Manager) GetOrCreateSessionID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok, err := m.storage.Get(Key)
	if err != nil {
		return "", fmt.Errorf("failed to read session id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}

	id = m.newID()
	if err := m.storage.Set(Key, id); err != nil {
		return "", fmt.Errorf("failed to store session id: %w", err)
	}
	return id, nil
}

// Reset clears the tab storage; the next call allocates a new identifier
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.storage.Clear()
}
