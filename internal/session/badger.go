// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerBackend stores every key in an embedded badger database. Each Save or
// Delete runs in a single read-write transaction.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadgerBackend opens the badger directory at path. An empty path opens an
// in-memory database.
func OpenBadgerBackend(path string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

func (b *BadgerBackend) Load(_ context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	err := b.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				out[k] = string(val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger load: %w", err)
	}
	return out, nil
}

func (b *BadgerBackend) Save(_ context.Context, values map[string]string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for k, v := range values {
			if err := txn.Set([]byte(k), []byte(v)); err != nil {
				return fmt.Errorf("badger set %s: %w", k, err)
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Delete(_ context.Context, keys []string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return fmt.Errorf("badger delete %s: %w", k, err)
			}
		}
		return nil
	})
}

func (b *BadgerBackend) Close() error { return b.db.Close() }
