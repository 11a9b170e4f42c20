package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore keeps one JSON file per key under a directory. File names are
// the sha256 of the key so any key is a valid file name.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

type fileEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Get retrieves a value.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.read(s.entryPath(key))
	if err != nil {
		return "", err
	}
	return e.Value, nil
}

// Set stores a value.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	if s.dir == "" {
		return errors.New("file store has no directory")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	data, err := json.MarshalIndent(fileEntry{Key: key, Value: value}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	// write then rename so readers never see a partial file
	path := s.entryPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing store file: %w", err)
	}
	return nil
}

// Delete removes a value.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.entryPath(key))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// List returns stored keys with the given prefix.
func (s *FileStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store directory: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		e, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			// Invalid entry, skip it
			continue
		}
		if strings.HasPrefix(e.Key, prefix) {
			keys = append(keys, e.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) read(path string) (*fileEntry, error) {
	if s.dir == "" {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var e fileEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return &e, nil
}

// entryPath returns the file path for a key
func (s *FileStore) entryPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
