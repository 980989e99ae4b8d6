package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

var ErrEmptyPath = errors.New("disk store path cannot be empty")

// DiskStore persists the whole entry map as a single JSON file. Every Put is
// a read-modify-write through a temp file followed by an atomic rename, so a
// crash mid-write leaves the previous file intact. Not safe for concurrent
// use; the facade serializes all access.
type DiskStore struct {
	path string
}

func NewDiskStore(path string) (*DiskStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	return &DiskStore{path: path}, nil
}

// Load reads the entire store. A missing file is an empty cache; a corrupt
// file is logged and treated as empty rather than failing startup.
func (s *DiskStore) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		log.Warn().Err(err).Str("path", s.path).Msg("failed to read suggestion cache file, starting empty")
		return map[string]string{}, nil
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("suggestion cache file is corrupt, starting empty")
		return map[string]string{}, nil
	}
	return entries, nil
}

// Put merges one entry and rewrites the file atomically.
func (s *DiskStore) Put(key, value string) error {
	entries, err := s.Load()
	if err != nil {
		return err
	}
	entries[key] = value
	return s.write(entries)
}

// Clear deletes the backing file.
func (s *DiskStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

func (s *DiskStore) write(entries map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entries: %w", err)
	}

	// Temp file must live in the same directory for the rename to be atomic.
	tmp, err := os.CreateTemp(dir, ".suggestions-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
