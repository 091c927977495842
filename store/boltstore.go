/*
 Package store provides a small BoltDB-backed byte-blob cache, adapted
 from the teacher's pkg/svs/database.go. There it backs Logic's own
 replay cache of previously-published signed Data packets; here it is
 scoped down to exactly that one job for transport_ndn.go (re-serving
 already-produced Data/RecoveryData payloads to late-arriving
 interests) and deliberately never holds Logic's State/DiffLog — the
 module never persists protocol state across restarts.
*/
package store

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	bolt "go.etcd.io/bbolt"
)

// ContentStore is a byte-blob cache keyed by name bytes.
type ContentStore interface {
	Get(key []byte) (val []byte)
	Set(key []byte, value []byte) error
	Remove(key []byte) error
	Close() error
}

// BoltStore is a ContentStore backed by a single bbolt bucket.
type BoltStore struct {
	handle *bolt.DB
	bucket []byte
}

// Open creates or opens a bbolt database at path with bucket as the
// storage bucket, creating both as needed.
func Open(path string, bucket []byte) (*BoltStore, error) {
	path = resolvePath(path)
	if err := ensureDirectory(path); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &BoltStore{handle: db, bucket: bucket}, nil
}

func (s *BoltStore) Get(key []byte) (val []byte) {
	s.handle.View(func(tx *bolt.Tx) error {
		val = tx.Bucket(s.bucket).Get(key)
		return nil
	})
	return val
}

func (s *BoltStore) Set(key []byte, value []byte) error {
	return s.handle.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(key, value)
	})
}

func (s *BoltStore) Remove(key []byte) error {
	return s.handle.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(key)
	})
}

func (s *BoltStore) Close() error {
	return s.handle.Close()
}

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return os.MkdirAll(dir, os.ModePerm)
	}
	return nil
}

func resolvePath(path string) string {
	usr, _ := user.Current()
	switch {
	case path == "~":
		return usr.HomeDir
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(usr.HomeDir, path[2:])
	case strings.HasPrefix(path, "./"):
		abs, _ := filepath.Abs(path)
		return abs
	default:
		return path
	}
}
