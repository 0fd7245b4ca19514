// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package localstore

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelDBStore is the default KeyValueStore engine, grounded on
// storage/database/leveldb_database.go.
type levelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a LevelDB store at file with the given
// cache budget (MiB; half goes to the block cache, a quarter to the write
// buffer) and open-file handle cap.
func OpenLevelDB(file string, cacheSizeMB, numHandles int) (KeyValueStore, error) {
	if cacheSizeMB < 16 {
		cacheSizeMB = 16
	}
	if numHandles < 16 {
		numHandles = 16
	}
	options := &opt.Options{
		OpenFilesCacheCapacity: numHandles,
		BlockCacheCapacity:     cacheSizeMB / 2 * opt.MiB,
		WriteBuffer:            cacheSizeMB / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelDBStore{db: db}, nil
}

func (s *levelDBStore) Get(key []byte) ([]byte, error) {
	dat, err := s.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return dat, nil
}

func (s *levelDBStore) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *levelDBStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *levelDBStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *levelDBStore) NewIterator(prefix []byte) Iterator {
	return &levelDBIterator{it: s.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (s *levelDBStore) Close() error { return s.db.Close() }

type levelDBIterator struct {
	it iterator.Iterator
}

func (i *levelDBIterator) Next() bool    { return i.it.Next() }
func (i *levelDBIterator) Key() []byte   { return i.it.Key() }
func (i *levelDBIterator) Value() []byte { return i.it.Value() }
func (i *levelDBIterator) Release()      { i.it.Release() }
