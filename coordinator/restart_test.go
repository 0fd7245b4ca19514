// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package coordinator_test

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proximax-storage/xpx-supercontract-executor/assembly"
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/coordinator"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
	"github.com/proximax-storage/xpx-supercontract-executor/task"
)

// TestRestartReplaysDirectoryAndPoExWithoutPeerRequests covers S7: a
// coordinator that restarts between OnEndBatchExecutionPublished and the
// next batch's task start must reload every cosigner's NextBatchToApprove
// (and its own PoEx state) from the local store, with nothing re-requested
// from peers to do so.
func TestRestartReplaysDirectoryAndPoExWithoutPeerRequests(t *testing.T) {
	db, err := localstore.OpenLevelDB(t.TempDir(), 16, 16)
	require.NoError(t, err)
	defer db.Close()
	store := localstore.New(db, 0)

	contractKey := seededKey32(0xaa)
	storageHash := seededKey32(0xbb)
	localKey, localPriv := seededIdentity(0x07)
	peerKey, _ := seededIdentity(0x08)

	localAcc := poex.New(seededKey32(0x07), localKey, 0, 16)

	asm := assembly.NewAssembler(contractKey, 0, "autorun.wasm", "run", 1000)
	before := coordinator.New(contractKey, 2, asm, localAcc)
	require.NoError(t, before.RestoreFromStore(store, contractKey[:]))
	before.Directory.Set(peerKey, poex.NewDirectoryEntry(0, 0))

	bt := &task.BatchExecutionTask{
		ContractKey: contractKey,
		ExecutorKey: localKey,
		PrivateKey:  localPriv,
		Storage:     fakeStorage{},
		PoEx:        localAcc,
		Batch:       model.Batch{BatchIndex: 0},
	}
	before.StartNextBatchTask(bt)

	calls := []opinion.CallExecutionOpinion{{CallId: seededKey32(0xcc), IsManual: true}}
	local := buildOpinion(localAcc, localKey, localPriv, contractKey, 0, storageHash, calls, 13)
	before.Quorum.SetLocalSuccessful(local)

	info := collaborator.PublishedEndBatchInfo{
		BatchIndex:           0,
		BatchSuccess:         true,
		DriveState:           storageHash,
		PoExVerificationInfo: opinion.EncodePoint(local.PoExVerificationInfo),
		Cosigners:            []common.ExecutorKey{localKey, peerKey},
	}
	localProof := localAcc.BuildActualProof().Batch
	_, _, err = before.OnEndBatchExecutionPublished(context.Background(), info, localKey, localProof)
	require.NoError(t, err)

	beforeEntry, ok := before.Directory.Get(peerKey)
	require.True(t, ok)
	require.Equal(t, uint64(1), beforeEntry.NextBatchToApprove)

	// Simulate a process restart: brand-new in-memory objects, same store
	// and contract key, no peer re-requested for anything.
	restoredAcc := poex.New(seededKey32(0x07), localKey, 99, 99)
	restartedAsm := assembly.NewAssembler(contractKey, 0, "autorun.wasm", "run", 1000)
	after := coordinator.New(contractKey, 2, restartedAsm, restoredAcc)
	require.NoError(t, after.RestoreFromStore(store, contractKey[:]))

	afterEntry, ok := after.Directory.Get(peerKey)
	require.True(t, ok)
	assert.Equal(t, beforeEntry.NextBatchToApprove, afterEntry.NextBatchToApprove)
	assert.True(t, beforeEntry.LatestBatchProof.T.Equal(afterEntry.LatestBatchProof.T))
	assert.True(t, beforeEntry.LatestBatchProof.R.Equal(afterEntry.LatestBatchProof.R))

	beforeProof := localAcc.BuildActualProof()
	afterProof := restoredAcc.BuildActualProof()
	assert.True(t, beforeProof.Batch.T.Equal(afterProof.Batch.T))
	assert.True(t, beforeProof.Batch.R.Equal(afterProof.Batch.R))
}
