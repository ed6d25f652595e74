package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"icalfeed/internal/ics"
	"icalfeed/internal/model"
)

var (
	fetchBucket    = []byte("fetch")
	snapshotBucket = []byte("snapshot")

	snapshotKey = []byte("current")
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Store persists fetch cache entries and the published feed snapshot in a
// bbolt file.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("could not open db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{fetchBucket, snapshotBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("unable to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadEntry implements ics.CacheStore.
func (s *Store) LoadEntry(key string) (ics.CacheEntry, error) {
	var e ics.CacheEntry
	err := s.get(fetchBucket, []byte(key), &e)
	return e, err
}

// SaveEntry implements ics.CacheStore.
func (s *Store) SaveEntry(key string, e ics.CacheEntry) error {
	return s.put(fetchBucket, []byte(key), e)
}

// LoadSnapshot returns the last saved snapshot.
func (s *Store) LoadSnapshot() (model.Snapshot, error) {
	var snap model.Snapshot
	err := s.get(snapshotBucket, snapshotKey, &snap)
	return snap, err
}

// SaveSnapshot replaces the stored snapshot.
func (s *Store) SaveSnapshot(snap model.Snapshot) error {
	return s.put(snapshotBucket, snapshotKey, snap)
}

func (s *Store) get(bucket, key []byte, v any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("invalid bucket %s", bucket)
		}
		raw := b.Get(key)
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, v)
	})
}

func (s *Store) put(bucket, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return fmt.Errorf("invalid bucket %s", bucket)
		}
		return b.Put(key, raw)
	})
}
