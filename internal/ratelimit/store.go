// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package ratelimit

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/medianest/medianest/internal/logging"
)

// ledgerKey is the fixed slot holding the JSON-serialized ledger.
const ledgerKey = "ledger:requests"

// Store persists the admission ledger. Load never fails the caller: a
// missing, corrupted, or unreadable value degrades to an empty ledger.
type Store interface {
	Load() Ledger
	Save(Ledger) error
}

// BadgerStore is the durable ledger store. The ledger survives process
// restarts; open the database with SyncWrites so Save is durable when it
// returns.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore wraps an open BadgerDB handle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadger opens the ledger database. With inMemory set, the store loses
// durability and is suitable only for tests and ephemeral deployments.
func OpenBadger(path string, inMemory bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{}).
		WithSyncWrites(true)
	if inMemory {
		opts = badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(badgerLogger{})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	return db, nil
}

// Load reads the persisted ledger. Any failure (missing key, unreadable
// value, corrupt JSON) yields an empty ledger rather than an error.
func (s *BadgerStore) Load() Ledger {
	var ledger Ledger

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ledgerKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ledger)
		})
	})
	if err != nil {
		logging.Warn().Err(err).Msg("unreadable admission ledger, treating as empty")
		return Ledger{}
	}
	if ledger == nil {
		return Ledger{}
	}
	return ledger
}

// Save writes the ledger synchronously.
func (s *BadgerStore) Save(ledger Ledger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ledgerKey), data)
	})
	if err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...any) {
	logging.Trace().Msgf("badger: "+format, args...)
}
