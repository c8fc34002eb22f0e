// Copyright (C) 2025 Pose Coach (devops@posecoach.app)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package history persists deployment runs in a local Badger database.
//
// The store answers two questions: what ran recently ("posectl
// history") and which version a rollback should restore. The latter is
// tracked as the version of the most recent fully successful run, kept
// under a dedicated key so a rollback never has to scan.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/posecoach/posectl/pkg/logging"
)

const (
	runPrefix = "run/"
	stableKey = "stable/latest"
)

// ErrNoStableVersion is returned by LastStableVersion before any
// successful run has been recorded.
var ErrNoStableVersion = errors.New("no stable version recorded")

// Record is one persisted deployment run.
type Record struct {
	RunID       string    `json:"run_id"`
	Version     string    `json:"version"`
	Strategy    string    `json:"strategy"`
	Environment string    `json:"environment"`
	Success     bool      `json:"success"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is the deployment-history database.
//
// # Thread Safety
//
// Safe for concurrent use; Badger transactions provide isolation.
type Store struct {
	db  *badger.DB
	log *logging.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(path string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	return &Store{db: db, log: log}, nil
}

// OpenInMemory opens a throwaway in-memory store.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory history database: %w", err)
	}
	return &Store{db: db, log: logging.New(logging.Config{Quiet: true})}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun appends a run to the history. A successful run also becomes
// the new stable version for future rollbacks.
func (s *Store) RecordRun(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}

	key := runKey(rec)
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if rec.Success {
			return txn.Set([]byte(stableKey), []byte(rec.Version))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record deployment run: %w", err)
	}

	s.log.Debug("recorded deployment run",
		"run_id", rec.RunID, "version", rec.Version, "success", rec.Success)
	return nil
}

// LastStableVersion returns the version of the most recent successful
// run.
//
// # Outputs
//
//   - string: The rollback target version.
//   - error: ErrNoStableVersion when nothing successful was ever
//     recorded; otherwise a storage error.
func (s *Store) LastStableVersion() (string, error) {
	var version string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stableKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			version = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", ErrNoStableVersion
	}
	if err != nil {
		return "", fmt.Errorf("failed to read stable version: %w", err)
	}
	return version, nil
}

// List returns up to limit runs, most recent first. A non-positive
// limit returns everything.
func (s *Store) List(limit int) ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec Record
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("failed to decode history record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys sort chronologically; flip to most-recent-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// runKey builds a chronologically sortable key for a run.
func runKey(rec Record) []byte {
	return []byte(fmt.Sprintf("%s%s/%s",
		runPrefix, rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z"), rec.RunID))
}
