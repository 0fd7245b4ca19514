// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package poex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

func fixedKey(b byte) common.Key32 {
	var k common.Key32
	for i := range k {
		k[i] = b
	}
	return k
}

// TestProofReplayConsistency checks that an honest executor's proofs for a
// run of batches verify against the sequence of on-chain verification
// infos, and that a tampered scalar fails.
func TestProofReplayConsistency(t *testing.T) {
	priv := fixedKey(0x01)
	pub := fixedKey(0x02)

	acc := New(priv, pub, 0, 16)
	verifier := New(fixedKey(0xAA), fixedKey(0xAB), 0, 16) // verifier only uses its history map

	dir := NewDirectoryEntry(0, 0)

	var lastProof Proof
	var lastInfo Point
	for batch := uint64(0); batch < 5; batch++ {
		y := acc.AddToProof(100 + batch)
		verifier.AddBatchVerificationInformation(batch, y)

		proof := acc.BuildActualProof()
		ok := verifier.VerifyProof(pub, dir, proof, batch, y)
		require.True(t, ok, "batch %d should verify", batch)

		dir.NextBatchToApprove = batch + 1
		dir.LatestBatchProof = proof.Batch
		lastProof = proof
		lastInfo = y
	}

	// Tamper with one scalar: verification must fail.
	tampered := lastProof
	tampered.Batch.R = tampered.Batch.R.Add(ScalarFromHash([]byte("tamper")))
	dirBefore := NewDirectoryEntry(0, 3)
	assert.False(t, verifier.VerifyProof(pub, dirBefore, tampered, 4, lastInfo))
}

// TestPublishedUnsuccessfulRollback checks that PopFromProof exactly
// reverses the preceding AddToProof.
func TestPublishedUnsuccessfulRollback(t *testing.T) {
	acc := New(fixedKey(1), fixedKey(2), 0, 8)
	before := acc.Snapshot()

	acc.AddToProof(42)
	acc.PopFromProof()

	after := acc.Snapshot()
	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.XPrev, after.XPrev)
}

func TestHistoryEvictsOldestOnOverflow(t *testing.T) {
	acc := New(fixedKey(1), fixedKey(2), 0, 2)
	acc.AddBatchVerificationInformation(0, MulBase(ScalarFromHash([]byte("a"))))
	acc.AddBatchVerificationInformation(1, MulBase(ScalarFromHash([]byte("b"))))
	acc.AddBatchVerificationInformation(2, MulBase(ScalarFromHash([]byte("c"))))

	_, ok0 := acc.lookupHistory(0)
	_, ok1 := acc.lookupHistory(1)
	_, ok2 := acc.lookupHistory(2)
	assert.False(t, ok0, "oldest entry should have been evicted")
	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	acc := New(fixedKey(7), fixedKey(8), 3, 4)
	acc.AddToProof(1)
	acc.AddBatchVerificationInformation(3, MulBase(ScalarFromHash([]byte("x"))))

	snap := acc.Snapshot()

	restored := New(fixedKey(7), fixedKey(8), 0, 0)
	restored.Restore(snap)

	assert.Equal(t, acc.x.v, restored.x.v)
	assert.Equal(t, acc.initialBatch, restored.initialBatch)
	assert.Equal(t, len(acc.history), len(restored.history))
}
