// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package assembly groups manual and automatic call requests into ordered,
// per-contract batches keyed by block height, and runs the per-block
// autorun probe that decides whether an automatic call joins the next
// batch.
package assembly

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// DraftStatus is a DraftBatch's assembly-time state.
type DraftStatus uint8

const (
	AcceptingManual DraftStatus = iota
	AwaitingAutorun
	Finished
)

func (s DraftStatus) String() string {
	switch s {
	case AcceptingManual:
		return "ACCEPTING_MANUAL"
	case AwaitingAutorun:
		return "AWAITING_AUTORUN"
	case Finished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// DraftBatch is an in-progress batch, bucketed by block height, before it is
// handed out as an immutable model.Batch.
type DraftBatch struct {
	BlockHeight uint64
	Status      DraftStatus
	Calls       []model.CallRequest
}

func (d *DraftBatch) hasAutomaticTail() bool {
	if len(d.Calls) == 0 {
		return false
	}
	return d.Calls[len(d.Calls)-1].Level == model.Automatic
}

func (d *DraftBatch) dropAutomaticTail() {
	if d.hasAutomaticTail() {
		d.Calls = d.Calls[:len(d.Calls)-1]
	}
}

// AutorunCallID derives the deterministic callId of an autorun probe for a
// given contract and block height.
func AutorunCallID(contractKey common.ContractKey, height uint64) common.CallId {
	h := sha256.New()
	h.Write(contractKey[:])
	var heightBytes [8]byte
	binary.BigEndian.PutUint64(heightBytes[:], height)
	h.Write(heightBytes[:])
	var id common.CallId
	copy(id[:], h.Sum(nil))
	return id
}
