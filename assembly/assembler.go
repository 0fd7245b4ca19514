// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package assembly

import (
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// AutorunProbeRequest is emitted by addBlock when the current draft needs an
// autorun probe dispatched. The caller (the owning Task/Coordinator, which
// alone is allowed to talk to the VM collaborator) executes it out of band
// and reports the outcome back through CompleteAutorunProbe.
type AutorunProbeRequest struct {
	Height   uint64
	CallId   common.CallId
	File     string
	Function string
	GasLimit uint64
}

// Assembler is the per-contract batch assembler: an ordered map of
// block-height-keyed drafts plus a possibly-present delayed batch handed
// back by a task that could not finish it.
type Assembler struct {
	contractKey common.ContractKey

	autorunFile     string
	autorunFunction string
	autorunGasLimit uint64

	// drafts is kept in ascending BlockHeight order; heights are appended
	// monotonically as addManualCall/addBlock observe new heights.
	drafts []*DraftBatch

	// enabledSince is nil when automatic executions are currently disabled,
	// or the height at which they became enabled.
	enabledSince *uint64

	// fixedUpTo: all heights < fixedUpTo are immutable.
	fixedUpTo uint64

	nextBatchIndex uint64
	delayedBatch   *model.Batch
}

// NewAssembler constructs an Assembler starting at the given batch index,
// with automatic executions initially disabled.
func NewAssembler(contractKey common.ContractKey, initialBatchIndex uint64, autorunFile, autorunFunction string, autorunGasLimit uint64) *Assembler {
	return &Assembler{
		contractKey:     contractKey,
		autorunFile:     autorunFile,
		autorunFunction: autorunFunction,
		autorunGasLimit: autorunGasLimit,
		nextBatchIndex:  initialBatchIndex,
	}
}

func (a *Assembler) draftAt(height uint64) (*DraftBatch, bool) {
	if len(a.drafts) == 0 {
		return nil, false
	}
	last := a.drafts[len(a.drafts)-1]
	if last.BlockHeight == height {
		return last, true
	}
	return nil, false
}

// automaticEnabledAt reports whether automatic executions are enabled at
// the given height.
func (a *Assembler) automaticEnabledAt(height uint64) bool {
	return a.enabledSince != nil && height >= *a.enabledSince
}

// AddManualCall buckets request by its BlockHeight: appended to the last
// draft if it targets the same height, else a new draft is opened.
func (a *Assembler) AddManualCall(request model.CallRequest) {
	draft, ok := a.draftAt(request.BlockHeight)
	if !ok {
		draft = &DraftBatch{BlockHeight: request.BlockHeight, Status: AcceptingManual}
		a.drafts = append(a.drafts, draft)
	}
	draft.Calls = append(draft.Calls, request)
}

// AddBlock processes a new block height. If automatic executions are
// disabled at this height, the current draft (if any) is finished with no
// automatic tail. If enabled, an AutorunProbeRequest is returned for the
// caller to dispatch; the draft is marked AwaitingAutorun until
// CompleteAutorunProbe resolves it.
func (a *Assembler) AddBlock(height uint64) (AutorunProbeRequest, bool) {
	if !a.automaticEnabledAt(height) {
		if len(a.drafts) > 0 {
			if last := a.drafts[len(a.drafts)-1]; last.Status == AcceptingManual {
				last.Status = Finished
			}
		}
		return AutorunProbeRequest{}, false
	}

	draft, ok := a.draftAt(height)
	if !ok {
		draft = &DraftBatch{BlockHeight: height, Status: AcceptingManual}
		a.drafts = append(a.drafts, draft)
	}

	draft.Status = AwaitingAutorun
	return AutorunProbeRequest{
		Height:   height,
		CallId:   AutorunCallID(a.contractKey, height),
		File:     a.autorunFile,
		Function: a.autorunFunction,
		GasLimit: a.autorunGasLimit,
	}, true
}

// CompleteAutorunProbe resolves the AwaitingAutorun draft at height: on
// success with returnCode == 0, an AUTOMATIC call is appended. Otherwise
// nothing is appended, and a draft holding no MANUAL calls is discarded.
// A draft that is kept transitions to Finished.
func (a *Assembler) CompleteAutorunProbe(height uint64, success bool, returnCode int32) {
	draft, ok := a.draftAt(height)
	if !ok || draft.Status != AwaitingAutorun {
		return
	}
	if success && returnCode == 0 {
		draft.Calls = append(draft.Calls, model.CallRequest{
			CallId:      AutorunCallID(a.contractKey, height),
			File:        a.autorunFile,
			Function:    a.autorunFunction,
			BlockHeight: height,
			Level:       model.Automatic,
		})
	} else if len(draft.Calls) == 0 {
		a.drafts = a.drafts[:len(a.drafts)-1]
		return
	}
	draft.Status = Finished
}

// FixUnmodifiable makes every draft at height < nextBlockHeight immutable:
// further SetAutomaticExecutionsEnabledSince calls may only rewrite drafts
// at height >= nextBlockHeight.
func (a *Assembler) FixUnmodifiable(nextBlockHeight uint64) {
	if nextBlockHeight > a.fixedUpTo {
		a.fixedUpTo = nextBlockHeight
	}
}

// SetAutomaticExecutionsEnabledSince updates the enabled-since height (nil
// disables automatic executions), retroactively strips the automatic tail
// of every not-yet-fixed Finished draft at whose height automatic
// executions are no longer enabled, and re-evaluates the delayed batch the
// same way. A tail that was stripped is not added back.
func (a *Assembler) SetAutomaticExecutionsEnabledSince(since *uint64) {
	a.enabledSince = since

	for _, d := range a.drafts {
		if d.BlockHeight < a.fixedUpTo {
			continue
		}
		if d.Status != Finished {
			continue
		}
		if a.automaticEnabledAt(d.BlockHeight) {
			continue
		}
		d.dropAutomaticTail()
	}

	if a.delayedBatch != nil && a.delayedBatch.HasAutomaticTail() {
		if !a.automaticEnabledAt(a.delayedBatch.BlockHeightUpperBound) {
			*a.delayedBatch = a.delayedBatch.WithoutAutomaticTail()
		}
	}
}

// HasNextBatch reports whether NextBatch would return a batch: either a
// delayed batch is present, or the oldest draft is Finished.
func (a *Assembler) HasNextBatch() bool {
	if a.delayedBatch != nil {
		return true
	}
	return len(a.drafts) > 0 && a.drafts[0].Status == Finished
}

// NextBatch consumes and returns the next batch, assigning it the next
// monotonic batch index.
func (a *Assembler) NextBatch() (model.Batch, bool) {
	if a.delayedBatch != nil {
		b := *a.delayedBatch
		a.delayedBatch = nil
		return b, true
	}

	if len(a.drafts) == 0 || a.drafts[0].Status != Finished {
		return model.Batch{}, false
	}

	draft := a.drafts[0]
	a.drafts = a.drafts[1:]

	batch := model.Batch{
		BatchIndex:            a.nextBatchIndex,
		BlockHeightUpperBound: draft.BlockHeight,
		Calls:                 draft.Calls,
	}
	a.nextBatchIndex++
	return batch, true
}

// DelayBatch stashes an execution task's returned batch for a later retry.
// If the batch's automatic tail has become invalid since execution started,
// it is dropped; if the batch becomes empty as a result, the batch index is
// given back and the batch is discarded entirely.
func (a *Assembler) DelayBatch(batch model.Batch) {
	if batch.HasAutomaticTail() && !a.automaticEnabledAt(batch.BlockHeightUpperBound) {
		batch = batch.WithoutAutomaticTail()
	}
	if len(batch.Calls) == 0 {
		if a.nextBatchIndex > 0 {
			a.nextBatchIndex--
		}
		return
	}
	a.delayedBatch = &batch
}

// SkipBatches consumes drafts, advancing nextBatchIndex up to (but not
// past) target, and drops a delayed batch whose index lies below target.
func (a *Assembler) SkipBatches(target uint64) {
	if a.delayedBatch != nil && a.delayedBatch.BatchIndex < target {
		a.delayedBatch = nil
	}
	for a.nextBatchIndex < target && len(a.drafts) > 0 {
		a.drafts = a.drafts[1:]
		a.nextBatchIndex++
	}
	if a.nextBatchIndex < target {
		a.nextBatchIndex = target
	}
}

// IsBatchValid reports whether batch may still be emitted as-is: its last
// call is MANUAL, or its height is already fixed unmodifiable, or automatic
// executions are enabled at that height.
func (a *Assembler) IsBatchValid(batch model.Batch) bool {
	last, ok := batch.LastCall()
	if !ok {
		return true
	}
	if last.IsManual() {
		return true
	}
	if batch.BlockHeightUpperBound < a.fixedUpTo {
		return true
	}
	return a.automaticEnabledAt(batch.BlockHeightUpperBound)
}

// MinBatchIndex returns the lowest batch index still pending: the delayed
// batch's index if present, else nextBatchIndex.
func (a *Assembler) MinBatchIndex() uint64 {
	if a.delayedBatch != nil {
		return a.delayedBatch.BatchIndex
	}
	return a.nextBatchIndex
}
