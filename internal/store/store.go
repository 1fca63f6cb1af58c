package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const settingsBucket = "settings"

// ErrClosed is returned when the store is used after Close.
var ErrClosed = errors.New("settings store is closed")

// Store is a durable named-slot store for small string values, backed by a
// single-file bbolt database. One bucket, string keys, string values.
type Store struct {
	mu     sync.Mutex
	db     *bolt.DB
	path   string
	closed bool
}

// Open creates or opens the settings database at path. The open has a short
// timeout so a stale lock from a crashed process surfaces as an error
// instead of a hang.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings db %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(settingsBucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize settings db: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the database. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// Get reads the value stored under key. The second return value reports
// whether the key was present.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", false, ErrClosed
	}

	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(settingsBucket)).Get([]byte(key))
		if raw != nil {
			value = string(raw)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	return value, found, nil
}

// Put writes value under key, replacing any prior value.
func (s *Store) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(settingsBucket)).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}

	return nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}
