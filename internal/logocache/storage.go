package logocache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketLogos = []byte("logos")

// record is the persisted form of a cache entry.
type record struct {
	Content      []byte    `json:"content"`
	ContentType  string    `json:"contentType"`
	CreatedAt    time.Time `json:"createdAt"`
	LastAccessed time.Time `json:"lastAccessed"`
}

// Storage persists logo cache entries across sessions, backed by BoltDB.
// All methods are safe on a nil receiver, which means memory-only mode.
type Storage struct {
	db *bolt.DB
}

// OpenStorage opens (or creates) the persistent logo store at path.
func OpenStorage(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open logo store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLogos)

		return err
	})
	if err != nil {
		db.Close()

		return nil, fmt.Errorf("failed to create logo bucket: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Put stores or replaces the record for url.
func (s *Storage) Put(url string, rec record) error {
	if s == nil || s.db == nil {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal logo record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLogos).Put([]byte(url), data)
	})
}

// Delete removes the record for url, if present.
func (s *Storage) Delete(url string) error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLogos).Delete([]byte(url))
	})
}

// Clear drops every persisted record.
func (s *Storage) Clear() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketLogos); err != nil {
			return err
		}

		_, err := tx.CreateBucket(bucketLogos)

		return err
	})
}

// Load calls fn for every persisted record. Records that fail to decode are
// skipped and their keys returned; the caller decides whether to delete
// them.
func (s *Storage) Load(fn func(url string, rec record)) (corrupt []string, err error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	err = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLogos).ForEach(func(key, value []byte) error {
			var rec record
			if err := json.Unmarshal(value, &rec); err != nil {
				corrupt = append(corrupt, string(key))

				return nil
			}

			fn(string(key), rec)

			return nil
		})
	})

	return corrupt, err
}
