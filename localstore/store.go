// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package localstore persists the executor's restart-recoverable state:
// the PoEx accumulator snapshot, the executor directory, and the
// Coordinator's buffered opinion/publication maps. It is built on a
// pluggable key-value abstraction (LevelDB default, Badger alternate
// engine), with snapshot blobs compressed before the put.
package localstore

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/klauspost/compress/zstd"
)

// KeyValueStore is the minimal engine surface localstore depends on;
// concrete engines (leveldb.go, badger.go) implement it.
type KeyValueStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) Iterator
	Close() error
}

// Iterator walks a key range in a KeyValueStore, ordered by key.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "localstore: not found" }

// Store wraps a KeyValueStore with the key-namespacing and compression
// conventions the rest of the module relies on. snapshotCache fronts
// GetAccumulatorSnapshot with a decompressed read-through cache: every
// contract re-reads its own snapshot at attach time, and a committee member
// serving many contracts otherwise pays a zstd decompression per attach for
// state that Put just wrote in this same process.
type Store struct {
	db            KeyValueStore
	snapshotCache *fastcache.Cache
}

// New wraps db with a read-through cache sized cacheBytes (0 or less
// selects a 32 MiB cache).
func New(db KeyValueStore, cacheBytes int) *Store {
	return &Store{db: db, snapshotCache: fastcache.New(maxCacheBytes(cacheBytes))}
}

func maxCacheBytes(n int) int {
	if n <= 0 {
		return 32 * 1024 * 1024
	}
	return n
}

func (s *Store) Close() error { return s.db.Close() }

var (
	accumulatorPrefix       = []byte("poex/accumulator/")
	directoryPrefix         = []byte("directory/")
	successfulOpinionPrefix = []byte("opinion/successful/")
	unsuccOpinionPrefix     = []byte("opinion/unsuccessful/")
	publicationPrefix       = []byte("publication/")
)

func namespaced(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	out = append(out, key...)
	return out
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// compress/decompress wrap PoEx accumulator snapshot blobs before they hit
// the KV put, per the design notes' compression expansion; directory
// entries, buffered opinions and publications are stored uncompressed.
func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// PutAccumulatorSnapshot persists the compressed encoding of a contract's
// PoEx accumulator snapshot under its contract key.
func (s *Store) PutAccumulatorSnapshot(contractKey []byte, encoded []byte) error {
	compressed, err := compress(encoded)
	if err != nil {
		return err
	}
	if err := s.db.Put(namespaced(accumulatorPrefix, contractKey), compressed); err != nil {
		return err
	}
	s.snapshotCache.Set(contractKey, encoded)
	return nil
}

// GetAccumulatorSnapshot returns the decompressed encoding previously
// stored by PutAccumulatorSnapshot, or ErrNotFound.
func (s *Store) GetAccumulatorSnapshot(contractKey []byte) ([]byte, error) {
	if cached, ok := s.snapshotCache.HasGet(nil, contractKey); ok {
		return cached, nil
	}

	ok, err := s.db.Has(namespaced(accumulatorPrefix, contractKey))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	compressed, err := s.db.Get(namespaced(accumulatorPrefix, contractKey))
	if err != nil {
		return nil, err
	}
	decoded, err := decompress(compressed)
	if err != nil {
		return nil, err
	}
	s.snapshotCache.Set(contractKey, decoded)
	return decoded, nil
}

// PutDirectoryEntry persists one executor directory entry for a contract.
func (s *Store) PutDirectoryEntry(contractKey, executorKey []byte, encoded []byte) error {
	return s.db.Put(namespaced(directoryPrefix, concat(contractKey, executorKey)), encoded)
}

// DirectoryIterator walks every persisted directory entry for one contract,
// stripping the contract-key/prefix portion of each key so the caller only
// ever sees the executor key.
type DirectoryIterator struct {
	it    Iterator
	strip int
}

func (d *DirectoryIterator) Next() bool  { return d.it.Next() }
func (d *DirectoryIterator) Value() []byte { return d.it.Value() }
func (d *DirectoryIterator) Release()    { d.it.Release() }

// ExecutorKey returns the current entry's executor key.
func (d *DirectoryIterator) ExecutorKey() []byte {
	k := d.it.Key()
	if len(k) < d.strip {
		return nil
	}
	return k[d.strip:]
}

// IterateDirectory walks every persisted directory entry for a contract.
func (s *Store) IterateDirectory(contractKey []byte) *DirectoryIterator {
	return &DirectoryIterator{
		it:    s.db.NewIterator(namespaced(directoryPrefix, contractKey)),
		strip: len(directoryPrefix) + len(contractKey),
	}
}

// batchIndexKey renders a batch index as its fixed-width 8-byte big-endian
// key component, keeping lexicographic and numeric iteration order aligned.
func batchIndexKey(batchIndex uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], batchIndex)
	return b[:]
}

// OpinionIterator walks every buffered opinion of one kind for a contract,
// exposing each entry's batch index and peer key separately from its value.
type OpinionIterator struct {
	it    Iterator
	strip int
}

func (o *OpinionIterator) Next() bool    { return o.it.Next() }
func (o *OpinionIterator) Value() []byte { return o.it.Value() }
func (o *OpinionIterator) Release()      { o.it.Release() }

// BatchIndex returns the current entry's batch index.
func (o *OpinionIterator) BatchIndex() uint64 {
	k := o.it.Key()
	if len(k) < o.strip+8 {
		return 0
	}
	return binary.BigEndian.Uint64(k[o.strip : o.strip+8])
}

// PeerKey returns the current entry's peer executor key.
func (o *OpinionIterator) PeerKey() []byte {
	k := o.it.Key()
	if len(k) < o.strip+8 {
		return nil
	}
	return k[o.strip+8:]
}

// PutSuccessfulOpinion checkpoints one buffered successful peer opinion so
// it survives a restart between arrival and task consumption.
func (s *Store) PutSuccessfulOpinion(contractKey []byte, batchIndex uint64, peerKey, encoded []byte) error {
	key := concat(contractKey, batchIndexKey(batchIndex), peerKey)
	return s.db.Put(namespaced(successfulOpinionPrefix, key), encoded)
}

// DeleteSuccessfulOpinion removes a consumed successful opinion checkpoint.
func (s *Store) DeleteSuccessfulOpinion(contractKey []byte, batchIndex uint64, peerKey []byte) error {
	key := concat(contractKey, batchIndexKey(batchIndex), peerKey)
	return s.db.Delete(namespaced(successfulOpinionPrefix, key))
}

// IterateSuccessfulOpinions walks every persisted successful opinion for a
// contract.
func (s *Store) IterateSuccessfulOpinions(contractKey []byte) *OpinionIterator {
	return &OpinionIterator{
		it:    s.db.NewIterator(namespaced(successfulOpinionPrefix, contractKey)),
		strip: len(successfulOpinionPrefix) + len(contractKey),
	}
}

// PutUnsuccessfulOpinion/DeleteUnsuccessfulOpinion/IterateUnsuccessfulOpinions
// mirror the Successful variants for UnsuccessfulEndBatchOpinion.
func (s *Store) PutUnsuccessfulOpinion(contractKey []byte, batchIndex uint64, peerKey, encoded []byte) error {
	key := concat(contractKey, batchIndexKey(batchIndex), peerKey)
	return s.db.Put(namespaced(unsuccOpinionPrefix, key), encoded)
}

func (s *Store) DeleteUnsuccessfulOpinion(contractKey []byte, batchIndex uint64, peerKey []byte) error {
	key := concat(contractKey, batchIndexKey(batchIndex), peerKey)
	return s.db.Delete(namespaced(unsuccOpinionPrefix, key))
}

func (s *Store) IterateUnsuccessfulOpinions(contractKey []byte) *OpinionIterator {
	return &OpinionIterator{
		it:    s.db.NewIterator(namespaced(unsuccOpinionPrefix, contractKey)),
		strip: len(unsuccOpinionPrefix) + len(contractKey),
	}
}

// PublicationIterator walks every persisted, not-yet-consumed publication
// checkpoint for a contract.
type PublicationIterator struct {
	it    Iterator
	strip int
}

func (p *PublicationIterator) Next() bool    { return p.it.Next() }
func (p *PublicationIterator) Value() []byte { return p.it.Value() }
func (p *PublicationIterator) Release()      { p.it.Release() }

// BatchIndex returns the current entry's batch index.
func (p *PublicationIterator) BatchIndex() uint64 {
	k := p.it.Key()
	if len(k) < p.strip+8 {
		return 0
	}
	return binary.BigEndian.Uint64(k[p.strip : p.strip+8])
}

// PutPublication checkpoints an unconsumed published-end-batch event.
func (s *Store) PutPublication(contractKey []byte, batchIndex uint64, encoded []byte) error {
	key := concat(contractKey, batchIndexKey(batchIndex))
	return s.db.Put(namespaced(publicationPrefix, key), encoded)
}

// DeletePublication removes a consumed publication checkpoint.
func (s *Store) DeletePublication(contractKey []byte, batchIndex uint64) error {
	key := concat(contractKey, batchIndexKey(batchIndex))
	return s.db.Delete(namespaced(publicationPrefix, key))
}

// IteratePublications walks every persisted publication checkpoint for a
// contract.
func (s *Store) IteratePublications(contractKey []byte) *PublicationIterator {
	return &PublicationIterator{
		it:    s.db.NewIterator(namespaced(publicationPrefix, contractKey)),
		strip: len(publicationPrefix) + len(contractKey),
	}
}
