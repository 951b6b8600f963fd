// Package store persists a per-file journal of pipeline outcomes in a local
// bbolt database. The journal is advisory: workers write it best-effort and
// the pipeline never blocks on it, but it lets an operator answer "what
// happened to this file" after the fact.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrRecordNotFound is returned when a file has no journal record.
	ErrRecordNotFound = errors.New("record not found")
)

var (
	filesBucket = []byte("files")
)

// FileState represents the last known lifecycle state of a file.
type FileState string

const (
	StateDeclared    FileState = "Declared"
	StateSkipped     FileState = "Skipped"
	StateTransferred FileState = "Transferred"
	StateFailed      FileState = "Failed"
)

// FileRecord is one file's journal entry, keyed by public name.
type FileRecord struct {
	Name        string    `json:"name"`
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	RunID       string    `json:"run_id"`
	State       FileState `json:"state"`
	Size        int64     `json:"size,omitempty"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Journal defines the interface for recording file outcomes.
type Journal interface {
	SaveRecord(rec *FileRecord) error
	GetRecord(name string) (*FileRecord, error)
	Close() error
}

// BoltJournal is a Journal implementation backed by bbolt.
type BoltJournal struct {
	db *bbolt.DB
}

// NewBoltJournal opens (or creates) a journal at the given path.
func NewBoltJournal(path string) (*BoltJournal, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(filesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create files bucket: %w", err)
	}

	return &BoltJournal{db: db}, nil
}

// SaveRecord writes a file's journal entry, stamping UpdatedAt.
func (s *BoltJournal) SaveRecord(rec *FileRecord) error {
	rec.UpdatedAt = time.Now().UTC()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(filesBucket)

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		if err := b.Put([]byte(rec.Name), data); err != nil {
			return fmt.Errorf("failed to put record: %w", err)
		}

		return nil
	})
}

// GetRecord retrieves a file's journal entry by public name.
func (s *BoltJournal) GetRecord(name string) (*FileRecord, error) {
	var rec FileRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(filesBucket)
		data := b.Get([]byte(name))
		if data == nil {
			return ErrRecordNotFound
		}

		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Close closes the underlying database.
func (s *BoltJournal) Close() error {
	return s.db.Close()
}
