package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCheckpoints = []byte("checkpoints")

// Checkpoint records how far a batched import of one source got.
type Checkpoint struct {
	Collection string    `json:"collection"`
	Source     string    `json:"source"`
	LastID     uint64    `json:"last_id"`
	Documents  int       `json:"documents"`
	Batches    int       `json:"batches"`
	Complete   bool      `json:"complete"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CheckpointStore is a BoltDB journal of import progress, so an import
// that stopped on a failed batch can resume after the last committed id.
type CheckpointStore struct {
	db *bbolt.DB
}

func NewCheckpointStore(path string) (*CheckpointStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCheckpoints)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create checkpoints bucket: %w", err)
	}

	return &CheckpointStore{db: db}, nil
}

func checkpointKey(collection, source string) []byte {
	return []byte(collection + "\x00" + source)
}

// Get returns the checkpoint for source in collection, if any.
func (s *CheckpointStore) Get(collection, source string) (Checkpoint, bool, error) {
	var cp Checkpoint
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCheckpoints).Get(checkpointKey(collection, source))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &cp)
	})
	return cp, found, err
}

// Record stores cp, replacing any previous checkpoint for the same source.
func (s *CheckpointStore) Record(cp Checkpoint) error {
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).Put(checkpointKey(cp.Collection, cp.Source), data)
	})
}

// List returns all checkpoints ordered by collection then source.
func (s *CheckpointStore) List() ([]Checkpoint, error) {
	var cps []Checkpoint
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCheckpoints).ForEach(func(k, v []byte) error {
			var cp Checkpoint
			if err := json.Unmarshal(v, &cp); err != nil {
				return nil // Skip corrupted entries
			}
			cps = append(cps, cp)
			return nil
		})
	})
	sort.Slice(cps, func(i, j int) bool {
		if cps[i].Collection != cps[j].Collection {
			return cps[i].Collection < cps[j].Collection
		}
		return cps[i].Source < cps[j].Source
	})
	return cps, err
}

// Reset removes the checkpoint for source. An empty source removes every
// checkpoint of the collection.
func (s *CheckpointStore) Reset(collection, source string) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCheckpoints)
		if source != "" {
			key := checkpointKey(collection, source)
			if b.Get(key) == nil {
				return nil
			}
			removed = 1
			return b.Delete(key)
		}

		prefix := []byte(collection + "\x00")
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	return removed, err
}

func (s *CheckpointStore) Close() error {
	return s.db.Close()
}
