// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package task

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/config"
	"github.com/proximax-storage/xpx-supercontract-executor/internal/log"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

var logger = log.NewModuleLogger(log.ModuleTask)

// IsStorageUnavailable reports whether err means the batch must be handed
// back to Assembly via delayBatch and retried after
// serviceUnavailableTimeoutMs, rather than a defect in the task itself.
func IsStorageUnavailable(err error) bool {
	return collaborator.IsUnavailable(err)
}

// ModificationID derives H(contractKey || batchIndex), the deterministic
// storage modification id for one batch.
func ModificationID(contractKey common.ContractKey, batchIndex uint64) common.Key32 {
	h := sha256.New()
	h.Write(contractKey[:])
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], batchIndex)
	h.Write(b[:])
	var id common.Key32
	copy(id[:], h.Sum(nil))
	return id
}

// BatchExecutionTask drives one batch through sandbox -> WASM -> hash ->
// opinion, per the sequential pipeline of the component design.
type BatchExecutionTask struct {
	ContractKey common.ContractKey
	DriveKey    common.DriveKey
	ExecutorKey common.ExecutorKey
	PrivateKey  ed25519.PrivateKey

	Batch  model.Batch
	Params config.ContractParams

	Storage collaborator.Storage
	VM      collaborator.VirtualMachine
	PoEx    *poex.Accumulator

	State State

	// ReleasedTransactions accumulates every call's released transaction, in
	// call order, for broadcast via ReleasedTransactionsAreReady once the
	// batch's publication is confirmed successful.
	ReleasedTransactions []*collaborator.ReleasedTransaction

	handle collaborator.StorageModification
}

// callOutcome is the intermediate per-call bookkeeping the pipeline
// accumulates before forming the end-batch opinion.
type callOutcome struct {
	opinion             opinion.CallExecutionOpinion
	releasedTransaction *collaborator.ReleasedTransaction
}

// Execute runs the full sequential pipeline for one batch. A storage
// unavailable error at any step means the caller must return the batch to
// Assembly via delayBatch; any other error is a VM/logic defect.
func (t *BatchExecutionTask) Execute(ctx context.Context) (opinion.SuccessfulEndBatchOpinion, error) {
	t.State = StateSandboxing

	modID := ModificationID(t.ContractKey, t.Batch.BatchIndex)
	handle, err := t.Storage.InitiateModifications(ctx, t.DriveKey, modID)
	if err != nil {
		t.State = StateAbort
		return opinion.SuccessfulEndBatchOpinion{}, err
	}
	t.handle = handle

	outcomes := make([]callOutcome, 0, len(t.Batch.Calls))
	var secretDataAccumulator uint64

	t.State = StateExecutingCalls
	for _, call := range t.Batch.Calls {
		outcome, secretData, err := t.executeCall(ctx, call)
		if err != nil {
			return opinion.SuccessfulEndBatchOpinion{}, err
		}
		secretDataAccumulator += secretData
		outcomes = append(outcomes, outcome)
		if outcome.releasedTransaction != nil {
			t.ReleasedTransactions = append(t.ReleasedTransactions, outcome.releasedTransaction)
		}
	}

	t.State = StateHashing
	storageState, err := t.Storage.EvaluateStorageHash(ctx, t.handle)
	if err != nil {
		t.State = StateAbort
		return opinion.SuccessfulEndBatchOpinion{}, err
	}

	t.State = StateOpinionExchange
	return t.formSuccessfulOpinion(storageState, outcomes, secretDataAccumulator), nil
}

func (t *BatchExecutionTask) executeCall(ctx context.Context, call model.CallRequest) (callOutcome, uint64, error) {
	sandbox, err := t.Storage.InitiateSandboxModification(ctx, t.handle, call.CallId)
	if err != nil {
		return callOutcome{}, 0, err
	}

	sem := newInternetSemaphore(t.Params.MaxInternetConnections)
	internet := newInternetHandler(sem, t.Params.InternetBufferSize, t.Params.InternetConnectionTimeout)
	blockchain := newBlockchainHandler(call)
	storageHandler := newStorageQueryHandler(t.Storage, t.DriveKey, call.CallId)

	multiplier := t.Params.ExecutionGasMultiplier
	if multiplier == 0 {
		multiplier = 1
	}
	gasLimit := call.ExecutionPayment * multiplier

	result, err := t.VM.ExecuteCall(ctx, call, internet, blockchain, storageHandler, gasLimit)
	if err != nil {
		return callOutcome{}, 0, err
	}

	storageHandler.closeLeakedHandles(ctx)

	if err := t.Storage.ApplySandboxModification(ctx, sandbox, result.Success); err != nil {
		return callOutcome{}, 0, err
	}

	status := uint16(0)
	if !result.Success {
		status = 1
	}

	actualExecutionPayment := ceilDiv(result.ExecutionGasConsumed, multiplier)
	if actualExecutionPayment > call.ExecutionPayment {
		actualExecutionPayment = call.ExecutionPayment
	}
	actualDownloadPayment := ceilDiv(result.DownloadGasConsumed, multiplier)
	if actualDownloadPayment > call.DownloadPayment {
		actualDownloadPayment = call.DownloadPayment
	}

	outcome := callOutcome{
		opinion: opinion.CallExecutionOpinion{
			CallId:               call.CallId,
			IsManual:             call.IsManual(),
			Status:               status,
			ExecutionPaymentUsed: actualExecutionPayment,
			DownloadPaymentUsed:  actualDownloadPayment,
		},
	}

	if result.Transaction != nil {
		outcome.opinion.ReleasedTransactionHash = result.Transaction.Hash
		outcome.releasedTransaction = result.Transaction
	}

	return outcome, result.ProofOfExecutionSecretData, nil
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return uint64(math.Ceil(float64(a) / float64(b)))
}

func (t *BatchExecutionTask) formSuccessfulOpinion(state collaborator.StorageState, outcomes []callOutcome, secretData uint64) opinion.SuccessfulEndBatchOpinion {
	verificationInfo := t.PoEx.AddToProof(secretData)
	proof := t.PoEx.BuildActualProof()

	calls := make([]opinion.CallExecutionOpinion, len(outcomes))
	for i, o := range outcomes {
		calls[i] = o.opinion
	}

	o := opinion.SuccessfulEndBatchOpinion{
		ContractKey:                    t.ContractKey,
		BatchIndex:                     t.Batch.BatchIndex,
		AutomaticExecutionsCheckedUpTo: t.Batch.BlockHeightUpperBound,
		StorageHash:                    state.StorageHash,
		UsedSize:                       state.UsedSize,
		MetaSize:                       state.MetaSize,
		PoExVerificationInfo:           verificationInfo,
		CallsExecutionInfo:             calls,
		Proof:                          proof,
		ExecutorKey:                    t.ExecutorKey,
	}
	o.Sign(t.PrivateKey)
	return o
}

// FormUnsuccessfulOpinion synthesizes the fallback opinion used when the
// unsuccessfulApprovalDelayMs timer fires without a successful quorum:
// reuses the call list, strips storage/PoEx-success fields, uses the
// previous (not-yet-committed) proof.
func (t *BatchExecutionTask) FormUnsuccessfulOpinion(calls []opinion.CallExecutionOpinion) opinion.UnsuccessfulEndBatchOpinion {
	o := opinion.UnsuccessfulEndBatchOpinion{
		ContractKey:                    t.ContractKey,
		BatchIndex:                     t.Batch.BatchIndex,
		AutomaticExecutionsCheckedUpTo: t.Batch.BlockHeightUpperBound,
		CallsExecutionInfo:             calls,
		Proof:                          t.PoEx.BuildPreviousProof(),
		ExecutorKey:                    t.ExecutorKey,
	}
	o.Sign(t.PrivateKey)
	return o
}

// ApplyPublishedUnsuccessful handles the "published-unsuccessful" outcome:
// rolls the PoEx accumulator back and discards the storage modification.
func (t *BatchExecutionTask) ApplyPublishedUnsuccessful(ctx context.Context) error {
	t.PoEx.PopFromProof()
	t.State = StatePublishedFail
	err := t.Storage.ApplyStorageModification(ctx, t.handle, false)
	t.State = StateDone
	return err
}

// ApplyPublishedSuccessful handles the "published-successful, matches
// local state" outcome: applies the modification for real.
func (t *BatchExecutionTask) ApplyPublishedSuccessful(ctx context.Context) error {
	t.State = StatePublishedOK
	err := t.Storage.ApplyStorageModification(ctx, t.handle, true)
	t.State = StateDone
	return err
}

// MatchesPublished reports whether the given published driveState/PoEx
// verification info matches the locally formed opinion, per publication
// reconciliation.
func (t *BatchExecutionTask) MatchesPublished(local opinion.SuccessfulEndBatchOpinion, driveState common.StorageHash, verificationInfo poex.Point) bool {
	return local.StorageHash == driveState && local.PoExVerificationInfo.Equal(verificationInfo)
}
