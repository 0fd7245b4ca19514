// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package localstore

import (
	"github.com/dgraph-io/badger"
)

// badgerStore is the alternate KeyValueStore engine, grounded on
// storage/database/badger_database.go.
type badgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger store at dir.
func OpenBadger(dir string) (KeyValueStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return out, err
}

func (s *badgerStore) Has(key []byte) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (s *badgerStore) Put(key, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *badgerStore) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (s *badgerStore) NewIterator(prefix []byte) Iterator {
	txn := s.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	it.Seek(prefix)
	return &badgerIterator{txn: txn, it: it, prefix: prefix, started: false}
}

func (s *badgerStore) Close() error { return s.db.Close() }

type badgerIterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	started bool
	key     []byte
	value   []byte
}

func (i *badgerIterator) Next() bool {
	if i.started {
		i.it.Next()
	}
	i.started = true
	if !i.it.ValidForPrefix(i.prefix) {
		return false
	}
	item := i.it.Item()
	i.key = item.KeyCopy(nil)
	val, err := item.ValueCopy(nil)
	if err != nil {
		return false
	}
	i.value = val
	return true
}

func (i *badgerIterator) Key() []byte   { return i.key }
func (i *badgerIterator) Value() []byte { return i.value }
func (i *badgerIterator) Release() {
	i.it.Close()
	i.txn.Discard()
}
