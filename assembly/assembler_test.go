// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

func testContractKey() common.ContractKey {
	return common.HexToKey32("0100000000000000000000000000000000000000000000000000000000000000")
}

func TestAddManualCallBucketsByHeight(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)

	a.AddManualCall(model.CallRequest{BlockHeight: 10, Level: model.Manual})
	a.AddManualCall(model.CallRequest{BlockHeight: 10, Level: model.Manual})

	require.Len(t, a.drafts, 1)
	assert.Len(t, a.drafts[0].Calls, 2)
	assert.Equal(t, AcceptingManual, a.drafts[0].Status)
}

func TestAddBlockAutorunDisabledFinishesImmediately(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)
	a.AddManualCall(model.CallRequest{BlockHeight: 10, Level: model.Manual})

	_, needsProbe := a.AddBlock(11)

	assert.False(t, needsProbe)
	assert.True(t, a.HasNextBatch())

	batch, ok := a.NextBatch()
	require.True(t, ok)
	assert.Equal(t, uint64(0), batch.BatchIndex)
	assert.Equal(t, uint64(10), batch.BlockHeightUpperBound)
	assert.Len(t, batch.Calls, 1)
}

func TestAutorunSuccessAppendsAutomaticTail(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)
	enabledSince := uint64(0)
	a.SetAutomaticExecutionsEnabledSince(&enabledSince)

	a.AddManualCall(model.CallRequest{BlockHeight: 10, Level: model.Manual})
	req, needsProbe := a.AddBlock(10)
	require.True(t, needsProbe)
	assert.Equal(t, AutorunCallID(testContractKey(), 10), req.CallId)

	a.CompleteAutorunProbe(10, true, 0)

	batch, ok := a.NextBatch()
	require.True(t, ok)
	require.Len(t, batch.Calls, 2)
	assert.Equal(t, model.Automatic, batch.Calls[1].Level)
}

func TestAutorunNonZeroReturnCodeDropsAllAndDraftDiscardedWhenEmpty(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)
	enabledSince := uint64(0)
	a.SetAutomaticExecutionsEnabledSince(&enabledSince)

	_, needsProbe := a.AddBlock(5)
	require.True(t, needsProbe)
	a.CompleteAutorunProbe(5, true, 1)

	assert.False(t, a.HasNextBatch())
	_, ok := a.NextBatch()
	assert.False(t, ok)
	assert.Len(t, a.drafts, 0)
}

func TestSetAutomaticExecutionsEnabledSinceStripsUnfixedTail(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)
	enabledSince := uint64(0)
	a.SetAutomaticExecutionsEnabledSince(&enabledSince)

	a.AddManualCall(model.CallRequest{BlockHeight: 5, Level: model.Manual})
	_, needsProbe := a.AddBlock(5)
	require.True(t, needsProbe)
	a.CompleteAutorunProbe(5, true, 0)
	require.True(t, a.drafts[0].hasAutomaticTail())

	a.SetAutomaticExecutionsEnabledSince(nil)

	assert.False(t, a.drafts[0].hasAutomaticTail())
	assert.Len(t, a.drafts[0].Calls, 1)
}

func TestFixUnmodifiablePreventsRetroactiveStrip(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)
	enabledSince := uint64(0)
	a.SetAutomaticExecutionsEnabledSince(&enabledSince)

	a.AddManualCall(model.CallRequest{BlockHeight: 5, Level: model.Manual})
	_, needsProbe := a.AddBlock(5)
	require.True(t, needsProbe)
	a.CompleteAutorunProbe(5, true, 0)

	a.FixUnmodifiable(6)
	a.SetAutomaticExecutionsEnabledSince(nil)

	assert.True(t, a.drafts[0].hasAutomaticTail())
}

func TestDelayBatchDropsInvalidatedTailAndDiscardsEmptyBatch(t *testing.T) {
	a := NewAssembler(testContractKey(), 5, "autorun.wasm", "run", 1000)

	batch := model.Batch{
		BatchIndex:            5,
		BlockHeightUpperBound: 20,
		Calls: []model.CallRequest{
			{BlockHeight: 20, Level: model.Automatic},
		},
	}
	a.nextBatchIndex = 6

	a.DelayBatch(batch)

	assert.Nil(t, a.delayedBatch)
	assert.Equal(t, uint64(5), a.nextBatchIndex)
}

func TestDelayBatchKeepsValidManualTail(t *testing.T) {
	a := NewAssembler(testContractKey(), 5, "autorun.wasm", "run", 1000)

	batch := model.Batch{
		BatchIndex:            5,
		BlockHeightUpperBound: 20,
		Calls: []model.CallRequest{
			{BlockHeight: 20, Level: model.Manual},
		},
	}

	a.DelayBatch(batch)

	require.NotNil(t, a.delayedBatch)
	assert.True(t, a.HasNextBatch())

	out, ok := a.NextBatch()
	require.True(t, ok)
	assert.Equal(t, uint64(5), out.BatchIndex)
}

func TestSkipBatchesAdvancesAndDropsStaleDelayedBatch(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)
	a.delayedBatch = &model.Batch{BatchIndex: 1}
	a.nextBatchIndex = 2
	a.drafts = append(a.drafts, &DraftBatch{BlockHeight: 30, Status: Finished})

	a.SkipBatches(3)

	assert.Nil(t, a.delayedBatch)
	assert.Equal(t, uint64(3), a.nextBatchIndex)
	assert.Len(t, a.drafts, 0)
}

func TestIsBatchValid(t *testing.T) {
	a := NewAssembler(testContractKey(), 0, "autorun.wasm", "run", 1000)

	manualTail := model.Batch{BlockHeightUpperBound: 10, Calls: []model.CallRequest{{Level: model.Manual}}}
	assert.True(t, a.IsBatchValid(manualTail))

	automaticTail := model.Batch{BlockHeightUpperBound: 10, Calls: []model.CallRequest{{Level: model.Automatic}}}
	assert.False(t, a.IsBatchValid(automaticTail))

	a.FixUnmodifiable(11)
	assert.True(t, a.IsBatchValid(automaticTail))
}
