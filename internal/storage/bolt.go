package storage

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore persists key-value blobs in a single-file BoltDB database.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
}

// OpenBolt initializes the BoltDB file and ensures the bucket exists.
func OpenBolt(path string, bucket string) (*BoltStore, error) {
	if bucket == "" {
		bucket = "taskboard"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{
		db:     db,
		bucket: []byte(bucket),
	}, nil
}

// Load reads the payload stored under key.
func (s *BoltStore) Load(key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, bolt.ErrDatabaseNotOpen
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw != nil {
			value = append([]byte(nil), raw...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, value != nil, nil
}

// Save writes the payload under key.
func (s *BoltStore) Save(key string, value []byte) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
}

// Remove deletes the key and reports whether it existed.
func (s *BoltStore) Remove(key string) (bool, error) {
	if s == nil || s.db == nil {
		return false, bolt.ErrDatabaseNotOpen
	}

	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		existed = b.Get([]byte(key)) != nil
		return b.Delete([]byte(key))
	})
	return existed, err
}

// Close closes the Bolt database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
