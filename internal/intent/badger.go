// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

var intentKey = []byte("intent:current")

// BadgerPersister stores the intent as JSON under a single key.
type BadgerPersister struct {
	db *badger.DB
}

// OpenBadgerPersister opens (or creates) a badger database at path.
func OpenBadgerPersister(path string) (*BadgerPersister, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open intent store: %w", err)
	}
	return &BadgerPersister{db: db}, nil
}

// Load returns the stored intent and whether one existed.
func (p *BadgerPersister) Load(_ context.Context) (Intent, bool, error) {
	var out Intent
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(intentKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Intent{}, false, nil
	}
	if err != nil {
		return Intent{}, false, fmt.Errorf("load intent: %w", err)
	}
	return out, true, nil
}

// Save overwrites the stored intent.
func (p *BadgerPersister) Save(_ context.Context, in Intent) error {
	buf, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(intentKey, buf)
	})
}

// Close closes the database.
func (p *BadgerPersister) Close() error { return p.db.Close() }

var _ Persister = (*BadgerPersister)(nil)
