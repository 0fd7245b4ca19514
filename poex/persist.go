// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package poex

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/proximax-storage/xpx-supercontract-executor/internal/log"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
)

var logger = log.NewModuleLogger(log.ModulePoEx)

var errShortSnapshot = fmt.Errorf("poex: persist: short snapshot buffer")

func putFixed32(buf *[]byte, v *big.Int) {
	var b [32]byte
	if v != nil {
		raw := v.Bytes()
		copy(b[32-len(raw):], raw)
	}
	*buf = append(*buf, b[:]...)
}

func getFixed32(b []byte) (*big.Int, []byte, error) {
	if len(b) < 32 {
		return nil, nil, errShortSnapshot
	}
	return new(big.Int).SetBytes(b[:32]), b[32:], nil
}

func putSnapU64(buf *[]byte, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	*buf = append(*buf, b[:]...)
}

func getSnapU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errShortSnapshot
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

// EncodeSnapshot renders an accumulator Snapshot into the fixed-width binary
// form checkpointed to the local store: X, XPrev (32 bytes each),
// InitialBatch, HistoryCap, a history count, then each HistoryRecord as
// (batchIndex, X, Y).
func EncodeSnapshot(s Snapshot) []byte {
	buf := make([]byte, 0, 96+len(s.History)*48)
	putFixed32(&buf, s.X)
	putFixed32(&buf, s.XPrev)
	putSnapU64(&buf, s.InitialBatch)
	putSnapU64(&buf, s.HistoryCap)
	putSnapU64(&buf, uint64(len(s.History)))
	for _, h := range s.History {
		putSnapU64(&buf, h.BatchIndex)
		putFixed32(&buf, h.X)
		putFixed32(&buf, h.Y)
	}
	return buf
}

// DecodeSnapshot parses the wire form produced by EncodeSnapshot.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var s Snapshot
	var err error
	s.X, b, err = getFixed32(b)
	if err != nil {
		return s, err
	}
	s.XPrev, b, err = getFixed32(b)
	if err != nil {
		return s, err
	}
	s.InitialBatch, b, err = getSnapU64(b)
	if err != nil {
		return s, err
	}
	s.HistoryCap, b, err = getSnapU64(b)
	if err != nil {
		return s, err
	}
	count, b, err := getSnapU64(b)
	if err != nil {
		return s, err
	}
	s.History = make([]HistoryRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		var r HistoryRecord
		r.BatchIndex, b, err = getSnapU64(b)
		if err != nil {
			return s, err
		}
		r.X, b, err = getFixed32(b)
		if err != nil {
			return s, err
		}
		r.Y, b, err = getFixed32(b)
		if err != nil {
			return s, err
		}
		s.History = append(s.History, r)
	}
	return s, nil
}

// EncodeDirectoryEntry renders a DirectoryEntry into its local-store wire
// form: InitialBatch, NextBatchToApprove (8 bytes each), then
// LatestBatchProof's T point (64 bytes) and R scalar (32 bytes).
func EncodeDirectoryEntry(e DirectoryEntry) []byte {
	buf := make([]byte, 0, 112)
	putSnapU64(&buf, e.InitialBatch)
	putSnapU64(&buf, e.NextBatchToApprove)
	buf = append(buf, e.LatestBatchProof.T.Bytes()...)
	buf = append(buf, e.LatestBatchProof.R.Bytes()...)
	return buf
}

// DecodeDirectoryEntry parses the wire form produced by EncodeDirectoryEntry.
func DecodeDirectoryEntry(b []byte) (DirectoryEntry, error) {
	var e DirectoryEntry
	var err error
	e.InitialBatch, b, err = getSnapU64(b)
	if err != nil {
		return e, err
	}
	e.NextBatchToApprove, b, err = getSnapU64(b)
	if err != nil {
		return e, err
	}
	if len(b) < 64 {
		return e, errShortSnapshot
	}
	e.LatestBatchProof.T = DecodePointBytes(b[:64])
	b = b[64:]
	if len(b) < 32 {
		return e, errShortSnapshot
	}
	e.LatestBatchProof.R = DecodeScalarBytes(b[:32])
	return e, nil
}

// AttachStore wires a to a durable local store: from now on, AddToProof,
// PopFromProof, Reset and AddBatchVerificationInformation each checkpoint
// a's full state to store under contractKey immediately after mutating it.
func (a *Accumulator) AttachStore(store *localstore.Store, contractKey []byte) {
	a.store = store
	a.storeKey = append([]byte{}, contractKey...)
}

// checkpoint persists a's current state, logging (never panicking or
// returning an error) on failure: a checkpoint write failing must not abort
// the batch pipeline that triggered it.
func (a *Accumulator) checkpoint() {
	if a.store == nil {
		return
	}
	if err := a.store.PutAccumulatorSnapshot(a.storeKey, EncodeSnapshot(a.Snapshot())); err != nil {
		logger.Error("accumulator checkpoint failed", "err", err)
	}
}

// RestoreFromStore attaches store to a and, if a previously checkpointed
// snapshot exists for contractKey, replaces a's state with it. It reports
// whether a snapshot was found; a's freshly constructed zero state is left
// untouched (and still attached for future checkpoints) when none was.
func (a *Accumulator) RestoreFromStore(store *localstore.Store, contractKey []byte) (bool, error) {
	a.AttachStore(store, contractKey)

	encoded, err := store.GetAccumulatorSnapshot(a.storeKey)
	if err == localstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	snap, err := DecodeSnapshot(encoded)
	if err != nil {
		return false, err
	}
	a.Restore(snap)
	return true, nil
}
