// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package coordinator implements the per-contract Contract Coordinator: a
// single-threaded dispatcher that keeps at most one active Task, buffers
// out-of-order peer opinions and published-transaction info, and maintains
// the executor directory.
package coordinator

import (
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// DirectoryEntry is one peer's checkpoint used by PoEx replay verification.
type DirectoryEntry = poex.DirectoryEntry

// Directory is the mapping from ExecutorKey to directory entry.
type Directory struct {
	entries map[common.ExecutorKey]DirectoryEntry

	store       *localstore.Store
	contractKey []byte
}

func NewDirectory() *Directory {
	return &Directory{entries: make(map[common.ExecutorKey]DirectoryEntry)}
}

// AttachStore wires d to a durable local store: every Set/
// OnEndBatchPublished mutation from now on is checkpointed under
// contractKey, keyed per peer by its executor key.
func (d *Directory) AttachStore(store *localstore.Store, contractKey []byte) {
	d.store = store
	d.contractKey = append([]byte{}, contractKey...)
}

// RestoreFrom replaces d's entries with whatever was previously checkpointed
// for contractKey, then attaches store for future checkpoints. Entries that
// fail to decode are skipped and logged rather than aborting the restore.
func (d *Directory) RestoreFrom(store *localstore.Store, contractKey []byte) {
	d.AttachStore(store, contractKey)

	it := store.IterateDirectory(contractKey)
	defer it.Release()
	for it.Next() {
		entry, err := poex.DecodeDirectoryEntry(it.Value())
		if err != nil {
			logger.Warn("skipping malformed directory entry", "err", err)
			continue
		}
		var key common.ExecutorKey
		copy(key[:], it.ExecutorKey())
		d.entries[key] = entry
	}
}

func (d *Directory) checkpoint(key common.ExecutorKey, entry DirectoryEntry) {
	if d.store == nil {
		return
	}
	if err := d.store.PutDirectoryEntry(d.contractKey, key[:], poex.EncodeDirectoryEntry(entry)); err != nil {
		logger.Error("directory checkpoint failed", "peer", key, "err", err)
	}
}

func (d *Directory) Get(key common.ExecutorKey) (DirectoryEntry, bool) {
	e, ok := d.entries[key]
	return e, ok
}

func (d *Directory) Set(key common.ExecutorKey, entry DirectoryEntry) {
	d.entries[key] = entry
	d.checkpoint(key, entry)
}

func (d *Directory) Keys() []common.ExecutorKey {
	keys := make([]common.ExecutorKey, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	return keys
}

// OnEndBatchPublished updates every named cosigner's nextBatchToApprove and
// latest proof checkpoint. Called on every EndBatchExecutionPublished
// event.
func (d *Directory) OnEndBatchPublished(cosigners []common.ExecutorKey, batchIndex uint64, latestProof poex.BatchProof) {
	for _, key := range cosigners {
		entry, ok := d.entries[key]
		if !ok {
			entry = poex.NewDirectoryEntry(batchIndex, batchIndex)
		}
		entry.NextBatchToApprove = batchIndex + 1
		entry.LatestBatchProof = latestProof
		d.entries[key] = entry
		d.checkpoint(key, entry)
	}
}
