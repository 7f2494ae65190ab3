// Package activity keeps a short per-organization journal of notable events
// backing the recent-activity feed. Entries live outside the relational store
// so feed writes never contend with campaign transactions.
package activity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// DefaultDepth bounds how many entries each organization retains
const DefaultDepth = 200

// Entry is one journal record
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	EntityID  string    `json:"entity_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal is an append-only activity log, one bucket per organization.
// Appends prune the oldest entries past the configured depth.
type Journal struct {
	db    *bolt.DB
	depth int
}

// Open opens or creates the journal file
func Open(path string, depth int) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Journal{db: db, depth: depth}, nil
}

// Close closes the underlying file
func (j *Journal) Close() error {
	return j.db.Close()
}

// makeKey orders entries chronologically within a bucket. The ID suffix keeps
// keys unique for entries sharing a timestamp.
func makeKey(t time.Time, id string) []byte {
	return []byte(t.UTC().Format(time.RFC3339Nano) + ":" + id)
}

// Append records an event for an organization and prunes past the depth cap
func (j *Journal) Append(orgID string, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(orgID))
		if err != nil {
			return fmt.Errorf("failed to create journal bucket: %w", err)
		}

		data, err := json.Marshal(&e)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}
		if err := bucket.Put(makeKey(e.Timestamp, e.ID), data); err != nil {
			return fmt.Errorf("failed to store entry: %w", err)
		}

		// Prune oldest entries beyond the depth cap
		total := 0
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			total++
		}
		excess := total - j.depth
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// Recent returns up to limit entries for an organization, newest first
func (j *Journal) Recent(orgID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	entries := []Entry{}
	err := j.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(orgID))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}
