// Package store persists tracker memory between runs in a BoltDB file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/lolwierd/cric-commentary/internal/tracker"
)

const (
	// DefaultFileMode is the mode for a newly created state file.
	DefaultFileMode = 0o600
	// DefaultTimeout bounds waiting for the file lock held by another process.
	DefaultTimeout = 1 * time.Second
)

var trackerBucket = []byte("trackers")

// ErrNotOpen is returned when the store is used before Open or after Close.
var ErrNotOpen = errors.New("state store is not open")

// BoltStore keeps one tracker snapshot per match URL.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger *zap.Logger
}

// New prepares a store at path. Nothing touches the disk until Open.
func New(path string, logger *zap.Logger) *BoltStore {
	return &BoltStore{path: path, logger: logger.Named("store")}
}

// Open creates the file and bucket if needed.
func (s *BoltStore) Open() error {
	s.logger.Info("opening state file", zap.String("path", s.path))

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for state file: %w", err)
	}

	db, err := bolt.Open(s.path, DefaultFileMode, &bolt.Options{Timeout: DefaultTimeout})
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(trackerBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create trackers bucket: %w", err)
	}

	s.db = db
	return nil
}

// Close releases the file lock.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Save stores snap under match, replacing any earlier snapshot.
func (s *BoltStore) Save(match string, snap tracker.Snapshot) error {
	if s.db == nil {
		return ErrNotOpen
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(trackerBucket).Put([]byte(match), data)
	})
}

// Load returns the snapshot saved for match. The bool is false when there
// is none.
func (s *BoltStore) Load(match string) (tracker.Snapshot, bool, error) {
	var snap tracker.Snapshot
	if s.db == nil {
		return snap, false, ErrNotOpen
	}

	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(trackerBucket).Get([]byte(match))
		if data == nil {
			return nil
		}
		found = true
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return tracker.Snapshot{}, false, err
	}
	return snap, found, nil
}
