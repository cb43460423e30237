// Package history keeps the backend's per-session conversation memory.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Manager handles conversation history keyed by the widget's session id.
// With an empty file path it keeps history in memory only.
type Manager struct {
	filePath    string
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
}

// NewManager creates a new history manager
func NewManager(filePath string, maxSessions int) *Manager {
	if maxSessions < 1 {
		maxSessions = 1
	}
	return &Manager{
		filePath:    filePath,
		sessions:    map[string]*Session{},
		maxSessions: maxSessions,
	}
}

// Load loads history from disk
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(m.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		// Corrupted file - backup and start fresh
		if err := os.Rename(m.filePath, m.filePath+".backup"); err != nil {
			return fmt.Errorf("failed to back up corrupted history: %w", err)
		}
		return nil
	}

	m.sessions = make(map[string]*Session, len(h.Sessions))
	for i := range h.Sessions {
		s := h.Sessions[i]
		m.sessions[s.ID] = &s
	}
	return nil
}

// Append adds messages to a session, creating it on first use, and persists
func (m *Manager) Append(sessionID string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &Session{ID: sessionID, StartedAt: now}
		m.sessions[sessionID] = s
	}

	for _, msg := range msgs {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		s.Messages = append(s.Messages, msg)
	}
	s.UpdatedAt = now

	m.pruneUnlocked()
	return m.saveUnlocked()
}

// Recent returns the last limit messages of a session
func (m *Manager) Recent(sessionID string, limit int) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok || limit <= 0 {
		return nil
	}

	msgs := s.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...)
}

// Len returns the number of sessions held
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// pruneUnlocked drops the least recently updated sessions beyond the limit
// (must be called with lock held)
func (m *Manager) pruneUnlocked() {
	if len(m.sessions) <= m.maxSessions {
		return
	}
	for _, s := range m.sortedUnlocked()[:len(m.sessions)-m.maxSessions] {
		delete(m.sessions, s.ID)
	}
}

// sortedUnlocked returns sessions oldest update first (must be called with lock held)
func (m *Manager) sortedUnlocked() []Session {
	sessions := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, *s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].UpdatedAt.Before(sessions[j].UpdatedAt)
	})
	return sessions
}

// saveUnlocked saves without acquiring the lock (must be called with lock held)
func (m *Manager) saveUnlocked() error {
	if m.filePath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(m.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(History{Sessions: m.sortedUnlocked()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	tempPath := m.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, m.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
