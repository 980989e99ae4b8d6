package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreEmptyPath(t *testing.T) {
	_, err := NewDiskStore("")
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestDiskStoreMissingFile(t *testing.T) {
	s, err := NewDiskStore(filepath.Join(t.TempDir(), "nope", "cache.json"))
	require.NoError(t, err)

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStorePutLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	s, err := NewDiskStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Put("2:0:hint", "try label A"))
	require.NoError(t, s.Put("2:0:keywords", "alpha, beta"))
	require.NoError(t, s.Put("2:0:hint", "try label B")) // overwrite

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"2:0:hint":     "try label B",
		"2:0:keywords": "alpha, beta",
	}, entries)

	// The parent directory was created on first write.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestDiskStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewDiskStore(path)
	require.NoError(t, err)

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// A corrupt file does not block new writes.
	require.NoError(t, s.Put("0:0:hint", "fresh"))
	entries, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "fresh", entries["0:0:hint"])
}

func TestDiskStoreCrashedWriterLeavesFileIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")

	s, err := NewDiskStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("1:0:hint", "original"))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// A writer that crashed between the temp write and the rename leaves a
	// stray temp file behind. The real file must be untouched and loads must
	// ignore the leftover.
	stray := filepath.Join(dir, ".suggestions-crashed.json")
	require.NoError(t, os.WriteFile(stray, []byte(`{"9:9:hint":"partial`), 0o644))

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1:0:hint": "original"}, entries)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDiskStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	s, err := NewDiskStore(path)
	require.NoError(t, err)

	// Clearing a store that never existed is fine.
	require.NoError(t, s.Clear())

	require.NoError(t, s.Put("0:0:hint", "v"))
	require.NoError(t, s.Clear())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
