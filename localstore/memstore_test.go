// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package localstore

import "sort"

// memKV is an in-process KeyValueStore fake used only by this package's
// tests: it trades away LevelDB/Badger's persistence for the ordered-prefix
// iteration semantics Store actually depends on, with none of the disk
// setup/teardown.
type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: make(map[string][]byte)} }

func (m *memKV) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memKV) Has(key []byte) (bool, error) {
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *memKV) Put(key, value []byte) error {
	m.data[string(key)] = append([]byte{}, value...)
	return nil
}

func (m *memKV) Delete(key []byte) error {
	delete(m.data, string(key))
	return nil
}

func (m *memKV) Close() error { return nil }

func (m *memKV) NewIterator(prefix []byte) Iterator {
	var keys []string
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == string(prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &memIterator{m: m, keys: keys, idx: -1}
}

type memIterator struct {
	m    *memKV
	keys []string
	idx  int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *memIterator) Key() []byte   { return []byte(it.keys[it.idx]) }
func (it *memIterator) Value() []byte { return it.m.data[it.keys[it.idx]] }
func (it *memIterator) Release()      {}
