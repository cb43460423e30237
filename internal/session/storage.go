package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage is tab-scoped key/value state. Implementations must be safe for
// concurrent use.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Clear drops every key, as when a tab is closed.
	Clear() error
}

// MemoryStorage keeps values for the lifetime of the process
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

func (s *MemoryStorage) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = map[string]string{}
	return nil
}

// FileStorage persists values as a JSON object in a single file
type FileStorage struct {
	filePath string
	mu       sync.Mutex
}

// NewFileStorage creates a file-backed storage. The file is created on first write.
func NewFileStorage(filePath string) *FileStorage {
	return &FileStorage{filePath: filePath}
}

func (s *FileStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readUnlocked()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *FileStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.readUnlocked()
	if err != nil {
		return err
	}
	values[key] = value
	return s.writeUnlocked(values)
}

func (s *FileStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// readUnlocked loads the file (must be called with lock held). A missing file
// is an empty storage; a corrupted one is moved aside.
func (s *FileStorage) readUnlocked() (map[string]string, error) {
	values := map[string]string{}

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := json.Unmarshal(data, &values); err != nil {
		if err := os.Rename(s.filePath, s.filePath+".backup"); err != nil {
			return nil, fmt.Errorf("failed to back up corrupted session file: %w", err)
		}
		return map[string]string{}, nil
	}
	return values, nil
}

// writeUnlocked saves atomically (must be called with lock held)
func (s *FileStorage) writeUnlocked(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tempPath := s.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
