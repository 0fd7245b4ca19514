// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package poex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
)

func TestEncodeDecodeSnapshotRoundTrip(t *testing.T) {
	acc := New(fixedKey(7), fixedKey(8), 3, 4)
	acc.AddToProof(1)
	acc.AddBatchVerificationInformation(3, MulBase(ScalarFromHash([]byte("x"))))

	encoded := EncodeSnapshot(acc.Snapshot())
	decoded, err := DecodeSnapshot(encoded)
	require.NoError(t, err)

	restored := New(fixedKey(7), fixedKey(8), 0, 0)
	restored.Restore(decoded)

	assert.Equal(t, acc.x.v, restored.x.v)
	assert.Equal(t, acc.xPrev.v, restored.xPrev.v)
	assert.Equal(t, acc.initialBatch, restored.initialBatch)
	assert.Equal(t, len(acc.history), len(restored.history))
}

func TestEncodeDecodeDirectoryEntryRoundTrip(t *testing.T) {
	entry := NewDirectoryEntry(5, 9)
	entry.LatestBatchProof = BatchProof{T: MulBase(ScalarFromHash([]byte("t"))), R: ScalarFromHash([]byte("r"))}

	decoded, err := DecodeDirectoryEntry(EncodeDirectoryEntry(entry))
	require.NoError(t, err)

	assert.Equal(t, entry.InitialBatch, decoded.InitialBatch)
	assert.Equal(t, entry.NextBatchToApprove, decoded.NextBatchToApprove)
	assert.True(t, entry.LatestBatchProof.T.Equal(decoded.LatestBatchProof.T))
	assert.True(t, entry.LatestBatchProof.R.Equal(decoded.LatestBatchProof.R))
}

// TestAccumulatorCheckpointsOnEveryMutationAndRestores exercises the actual
// durability path end to end against a real LevelDB-backed Store: every
// mutating call on one Accumulator is checkpointed, and a second
// Accumulator attached to the same store and contract key after a
// simulated restart recovers the identical state.
func TestAccumulatorCheckpointsOnEveryMutationAndRestores(t *testing.T) {
	db, err := localstore.OpenLevelDB(t.TempDir(), 16, 16)
	require.NoError(t, err)
	defer db.Close()
	store := localstore.New(db, 0)

	contractKey := fixedKey(0x42)

	acc := New(fixedKey(1), fixedKey(2), 0, 8)
	acc.AttachStore(store, contractKey[:])

	acc.AddToProof(10)
	acc.AddToProof(11)
	acc.AddBatchVerificationInformation(0, MulBase(ScalarFromHash([]byte("y0"))))

	restored := New(fixedKey(1), fixedKey(2), 99, 99)
	found, err := restored.RestoreFromStore(store, contractKey[:])
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, acc.x.v, restored.x.v)
	assert.Equal(t, acc.xPrev.v, restored.xPrev.v)
	assert.Equal(t, acc.initialBatch, restored.initialBatch)
	assert.Equal(t, len(acc.history), len(restored.history))

	acc.PopFromProof()
	afterPop := New(fixedKey(1), fixedKey(2), 0, 0)
	found, err = afterPop.RestoreFromStore(store, contractKey[:])
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, acc.x.v, afterPop.x.v)
}

func TestRestoreFromStoreReportsNotFoundForUnseenContract(t *testing.T) {
	db, err := localstore.OpenLevelDB(t.TempDir(), 16, 16)
	require.NoError(t, err)
	defer db.Close()
	store := localstore.New(db, 0)

	acc := New(fixedKey(1), fixedKey(2), 0, 8)
	found, err := acc.RestoreFromStore(store, fixedKey(0x99)[:])
	require.NoError(t, err)
	assert.False(t, found)
}
