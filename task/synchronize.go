// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package task

import (
	"context"
	"crypto/ed25519"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// SynchronizeTask brings storage into the state the blockchain's published
// batch result already committed to.
type SynchronizeTask struct {
	ContractKey    common.ContractKey
	DriveKey       common.DriveKey
	ExecutorKey    common.ExecutorKey
	PrivateKey     ed25519.PrivateKey
	ModificationID common.Key32
	TargetHash     common.StorageHash
	NextBatchIndex uint64

	Storage collaborator.Storage
	PoEx    *poex.Accumulator
}

// Run calls Storage.SynchronizeStorage; on success it resets PoEx to
// NextBatchIndex+1 and returns the signed checkpoint, and the caller must
// invoke assembly.SkipBatches(NextBatchIndex) and emit the single-signature
// synchronize transaction. On storage_unavailable the caller retries Run
// unchanged.
func (t *SynchronizeTask) Run(ctx context.Context) (opinion.PeerOpinion, error) {
	if err := t.Storage.SynchronizeStorage(ctx, t.DriveKey, t.ModificationID, t.TargetHash); err != nil {
		if !collaborator.IsUnavailable(err) {
			logger.Error("synchronize task: storage error", "contract", t.ContractKey, "err", err)
		}
		return opinion.PeerOpinion{}, err
	}

	t.PoEx.Reset(t.NextBatchIndex + 1)
	proof := t.PoEx.BuildActualProof()
	sig := opinion.SignCheckpoint(t.PrivateKey, t.ContractKey, t.NextBatchIndex, proof)

	return opinion.PeerOpinion{
		ExecutorKey: t.ExecutorKey,
		Signature:   sig,
		Proof:       proof,
	}, nil
}
