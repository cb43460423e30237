package session

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateSessionID_StableWithinTab(t *testing.T) {
	m := NewManager(NewMemoryStorage())

	first, err := m.GetOrCreateSessionID()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "identifier should be a canonical UUID")

	for i := 0; i < 5; i++ {
		again, err := m.GetOrCreateSessionID()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestGetOrCreateSessionID_FreshAfterReset(t *testing.T) {
	m := NewManager(NewMemoryStorage())

	first, err := m.GetOrCreateSessionID()
	require.NoError(t, err)
	require.NoError(t, m.Reset())

	second, err := m.GetOrCreateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestGetOrCreateSessionID_SeparateTabs(t *testing.T) {
	a := NewManager(NewMemoryStorage())
	b := NewManager(NewMemoryStorage())

	idA, err := a.GetOrCreateSessionID()
	require.NoError(t, err)
	idB, err := b.GetOrCreateSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
}

func TestGetOrCreateSessionID_ReusesStoredValue(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Set(Key, "existing-id"))

	id, err := NewManager(storage).GetOrCreateSessionID()
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
}

func TestGetOrCreateSessionID_Concurrent(t *testing.T) {
	m := NewManager(NewMemoryStorage())

	var wg sync.WaitGroup
	ids := make([]string, 20)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := m.GetOrCreateSessionID()
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestFileStorage_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	id, err := NewManager(NewFileStorage(path)).GetOrCreateSessionID()
	require.NoError(t, err)

	again, err := NewManager(NewFileStorage(path)).GetOrCreateSessionID()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	require.NoError(t, NewFileStorage(path).Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorage_CorruptedFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	s := NewFileStorage(path)
	_, ok, err := s.Get(Key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(path + ".backup")
	assert.NoError(t, err)
}
