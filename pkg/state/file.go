package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileStore keeps one file per key under a directory. Files are written
// atomically with mode 0600.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	closed bool
	now    func() time.Time
}

type fileEntry struct {
	Value     []byte    `msgpack:"v"`
	ExpiresAt time.Time `msgpack:"e"`
}

// NewFileStore creates the directory if needed and returns a store over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("state: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Get retrieves a value.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.read(key)
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *FileStore) read(key string) (fileEntry, error) {
	if s.closed {
		return fileEntry{}, ErrStoreClosed
	}
	p, err := s.path(key)
	if err != nil {
		return fileEntry{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fileEntry{}, ErrKeyNotFound
	}
	if err != nil {
		return fileEntry{}, fmt.Errorf("state: read %s: %w", key, err)
	}

	var entry fileEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return fileEntry{}, fmt.Errorf("%w: %s", ErrInvalidData, key)
	}
	if !entry.ExpiresAt.IsZero() && s.now().After(entry.ExpiresAt) {
		os.Remove(p)
		return fileEntry{}, ErrKeyNotFound
	}
	return entry, nil
}

// Set stores a value.
func (s *FileStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}

	entry := fileEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("state: write %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state: delete %s: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.read(key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Close closes the store. Files stay on disk.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
