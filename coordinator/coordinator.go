// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package coordinator

import (
	"context"

	"github.com/proximax-storage/xpx-supercontract-executor/assembly"
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/internal/log"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
	"github.com/proximax-storage/xpx-supercontract-executor/task"
)

var logger = log.NewModuleLogger(log.ModuleCoordinator)

// ActiveKind names which Task variant currently owns the contract.
type ActiveKind int

const (
	ActiveNone ActiveKind = iota
	ActiveInit
	ActiveSynchronize
	ActiveBatchExecution
	ActiveRemove
)

// QuorumTracker accumulates peer opinions for the active batch and
// evaluates the 3k > 2n rule whenever one arrives.
type QuorumTracker struct {
	local          opinion.SuccessfulEndBatchOpinion
	localSet       bool
	localUnsucc    opinion.UnsuccessfulEndBatchOpinion
	unsuccSet      bool
	successfulBy   map[common.ExecutorKey]opinion.SuccessfulEndBatchOpinion
	unsuccessfulBy map[common.ExecutorKey]opinion.UnsuccessfulEndBatchOpinion

	// sent tracks whether a multisig publish attempt has already been
	// handed to the blockchain collaborator for this task; cleared when an
	// EndBatchExecutionFailed event arrives before the published-batch
	// reconciliation confirms it, so a fresh attempt can be made.
	sent bool
}

func NewQuorumTracker() *QuorumTracker {
	return &QuorumTracker{
		successfulBy:   make(map[common.ExecutorKey]opinion.SuccessfulEndBatchOpinion),
		unsuccessfulBy: make(map[common.ExecutorKey]opinion.UnsuccessfulEndBatchOpinion),
	}
}

func (q *QuorumTracker) SetLocalSuccessful(o opinion.SuccessfulEndBatchOpinion) {
	q.local = o
	q.localSet = true
	q.successfulBy[o.ExecutorKey] = o
}

func (q *QuorumTracker) SetLocalUnsuccessful(o opinion.UnsuccessfulEndBatchOpinion) {
	q.localUnsucc = o
	q.unsuccSet = true
	q.unsuccessfulBy[o.ExecutorKey] = o
}

func (q *QuorumTracker) AddSuccessful(o opinion.SuccessfulEndBatchOpinion) {
	q.successfulBy[o.ExecutorKey] = o
}

func (q *QuorumTracker) AddUnsuccessful(o opinion.UnsuccessfulEndBatchOpinion) {
	q.unsuccessfulBy[o.ExecutorKey] = o
}

// SuccessfulQuorumReached reports whether enough matching successful
// opinions have arrived, given n committee peers.
func (q *QuorumTracker) SuccessfulQuorumReached(n int) bool {
	return opinion.EnoughOpinions(len(q.successfulBy), n)
}

func (q *QuorumTracker) UnsuccessfulQuorumReached(n int) bool {
	return opinion.EnoughOpinions(len(q.unsuccessfulBy), n)
}

func (q *QuorumTracker) SuccessfulPeers() []opinion.PeerOpinion {
	out := make([]opinion.PeerOpinion, 0, len(q.successfulBy))
	for key, o := range q.successfulBy {
		if key == q.local.ExecutorKey {
			continue
		}
		out = append(out, opinion.PeerOpinion{ExecutorKey: o.ExecutorKey, Signature: o.Signature, Proof: o.Proof})
	}
	return out
}

func (q *QuorumTracker) UnsuccessfulPeers() []opinion.PeerOpinion {
	out := make([]opinion.PeerOpinion, 0, len(q.unsuccessfulBy))
	for key, o := range q.unsuccessfulBy {
		if key == q.localUnsucc.ExecutorKey {
			continue
		}
		out = append(out, opinion.PeerOpinion{ExecutorKey: o.ExecutorKey, Signature: o.Signature, Proof: o.Proof})
	}
	return out
}

func (q *QuorumTracker) HasLocalSuccessful() bool { return q.localSet }
func (q *QuorumTracker) HasLocalUnsuccessful() bool { return q.unsuccSet }

func (q *QuorumTracker) LocalSuccessful() opinion.SuccessfulEndBatchOpinion { return q.local }
func (q *QuorumTracker) LocalUnsuccessful() opinion.UnsuccessfulEndBatchOpinion {
	return q.localUnsucc
}

// MarkSent/ClearSent/IsSent guard against handing the same multisig
// transaction to the blockchain collaborator twice while a prior attempt's
// on-chain outcome is still unknown.
func (q *QuorumTracker) MarkSent()  { q.sent = true }
func (q *QuorumTracker) ClearSent() { q.sent = false }
func (q *QuorumTracker) IsSent() bool { return q.sent }

// ContractCoordinator is the single-threaded, per-contract dispatcher. All
// methods are expected to run on the owning Executor's single event-loop
// goroutine; no locking is performed.
type ContractCoordinator struct {
	ContractKey common.ContractKey
	NumPeers    int

	Assembler *assembly.Assembler
	PoEx      *poex.Accumulator
	Directory *Directory
	Buffers   *Buffers

	Active    ActiveKind
	BatchTask *task.BatchExecutionTask
	Quorum    *QuorumTracker

	removeRequested      bool
	synchronizeRequested bool
	syncTarget           common.StorageHash
	syncModID            common.Key32
}

func New(contractKey common.ContractKey, numPeers int, assembler *assembly.Assembler, acc *poex.Accumulator) *ContractCoordinator {
	return &ContractCoordinator{
		ContractKey: contractKey,
		NumPeers:    numPeers,
		Assembler:   assembler,
		PoEx:        acc,
		Directory:   NewDirectory(),
		Buffers:     NewBuffers(),
		Active:      ActiveNone,
	}
}

// RestoreFromStore attaches store to c's PoEx accumulator, executor
// directory and opinion/publication buffers, replaying whatever was
// checkpointed for contractKey before c's first task runs. Safe to call on
// a brand-new contract: RestoreFromStore finds nothing and simply leaves
// everything attached for future checkpoints.
func (c *ContractCoordinator) RestoreFromStore(store *localstore.Store, contractKey []byte) error {
	if _, err := c.PoEx.RestoreFromStore(store, contractKey); err != nil {
		return err
	}
	c.Directory.RestoreFrom(store, contractKey)
	c.Buffers.RestoreFrom(store, contractKey)
	return nil
}

// RequestRemove marks the contract for retirement; takes effect at the next
// task succession point.
func (c *ContractCoordinator) RequestRemove() { c.removeRequested = true }

// RequestSynchronize marks a pending Synchronize Task; takes effect at the
// next task succession point.
func (c *ContractCoordinator) RequestSynchronize(modID common.Key32, target common.StorageHash) {
	c.synchronizeRequested = true
	c.syncModID = modID
	c.syncTarget = target
}

// NextTaskKind implements the task succession rule:
// 1. Remove pending -> RemoveContractTask
// 2. Synchronize pending -> SynchronizeTask
// 3. assembly.HasNextBatch() -> BatchExecutionTask
// 4. else idle
func (c *ContractCoordinator) NextTaskKind() ActiveKind {
	if c.removeRequested {
		return ActiveRemove
	}
	if c.synchronizeRequested {
		return ActiveSynchronize
	}
	if c.Assembler.HasNextBatch() {
		return ActiveBatchExecution
	}
	return ActiveNone
}

// StartNextBatchTask pulls the next batch from Assembly, constructs a
// BatchExecutionTask, and replays any buffered opinions for that batch
// index in arrival order.
func (c *ContractCoordinator) StartNextBatchTask(t *task.BatchExecutionTask) {
	c.Active = ActiveBatchExecution
	c.BatchTask = t
	c.Quorum = NewQuorumTracker()

	for _, o := range c.Buffers.TakeSuccessful(t.Batch.BatchIndex) {
		c.Quorum.AddSuccessful(o)
	}
	for _, o := range c.Buffers.TakeUnsuccessful(t.Batch.BatchIndex) {
		c.Quorum.AddUnsuccessful(o)
	}
}

// OnPeerSuccessfulOpinion validates and, if accepted, records a peer's
// SuccessfulEndBatchOpinion. If the active task is not yet executing this
// batch index, the opinion is buffered for later replay.
func (c *ContractCoordinator) OnPeerSuccessfulOpinion(peer common.ExecutorKey, o opinion.SuccessfulEndBatchOpinion, declared []opinion.DeclaredPayments) {
	dirEntry, known := c.Directory.Get(peer)
	if !known {
		logger.Warn("invalid peer opinion", "reason", opinion.ReasonUnknownPeer, "peer", peer)
		return
	}

	if c.Active != ActiveBatchExecution || c.BatchTask == nil || c.BatchTask.Batch.BatchIndex != o.BatchIndex {
		c.Buffers.AddSuccessful(o.BatchIndex, peer, o)
		return
	}

	if err := opinion.ValidateSuccessful(c.Quorum.local, o, declared, c.PoEx, dirEntry); err != nil {
		logger.Warn("invalid peer opinion", "err", err, "peer", peer, "batch", o.BatchIndex)
		return
	}

	c.Quorum.AddSuccessful(o)
}

// OnPeerUnsuccessfulOpinion is OnPeerSuccessfulOpinion's counterpart.
func (c *ContractCoordinator) OnPeerUnsuccessfulOpinion(peer common.ExecutorKey, o opinion.UnsuccessfulEndBatchOpinion) {
	dirEntry, known := c.Directory.Get(peer)
	if !known {
		logger.Warn("invalid peer opinion", "reason", opinion.ReasonUnknownPeer, "peer", peer)
		return
	}

	if c.Active != ActiveBatchExecution || c.BatchTask == nil || c.BatchTask.Batch.BatchIndex != o.BatchIndex || !c.Quorum.unsuccSet {
		c.Buffers.AddUnsuccessful(o.BatchIndex, peer, o)
		return
	}

	if err := opinion.ValidateUnsuccessful(c.Quorum.localUnsucc, o, c.PoEx, dirEntry); err != nil {
		logger.Warn("invalid peer opinion", "err", err, "peer", peer, "batch", o.BatchIndex)
		return
	}

	c.Quorum.AddUnsuccessful(o)
}

// OnEndBatchExecutionPublished reconciles local state with the
// authoritative on-chain batch result. info.BatchSuccess selects between
// the unsuccessful, matching-successful, and mismatched-successful
// outcomes.
func (c *ContractCoordinator) OnEndBatchExecutionPublished(ctx context.Context, info collaborator.PublishedEndBatchInfo, selfKey common.ExecutorKey, localProof poex.BatchProof) (collaborator.SingleTransactionInfo, bool, error) {
	c.Directory.OnEndBatchPublished(info.Cosigners, info.BatchIndex, localProof)

	if c.Active != ActiveBatchExecution || c.BatchTask == nil || c.BatchTask.Batch.BatchIndex != info.BatchIndex {
		c.Buffers.AddPublication(info)
		return collaborator.SingleTransactionInfo{}, false, nil
	}

	if !info.BatchSuccess {
		err := c.BatchTask.ApplyPublishedUnsuccessful(ctx)
		c.finishBatchTask()
		return collaborator.SingleTransactionInfo{}, false, err
	}

	verificationInfo := decodePoint(info.PoExVerificationInfo)

	if !c.BatchTask.MatchesPublished(c.Quorum.local, info.DriveState, verificationInfo) {
		c.finishBatchTask()
		return collaborator.SingleTransactionInfo{}, false, errMismatch
	}

	if err := c.BatchTask.ApplyPublishedSuccessful(ctx); err != nil {
		return collaborator.SingleTransactionInfo{}, false, err
	}

	present := false
	for _, key := range info.Cosigners {
		if key == selfKey {
			present = true
			break
		}
	}

	var single collaborator.SingleTransactionInfo
	emitSingle := false
	if !present {
		single = opinion.SingleTransaction(c.ContractKey, info.BatchIndex, selfKey, c.Quorum.local.Signature, c.Quorum.local.Proof)
		emitSingle = true
	}

	c.finishBatchTask()
	return single, emitSingle, nil
}

var errMismatch = mismatchError{}

type mismatchError struct{}

func (mismatchError) Error() string { return "coordinator: published batch mismatch, synchronize required" }

// IsMismatch reports whether err is the "published batch mismatch" outcome
// of OnEndBatchExecutionPublished, which the caller must resolve by
// requesting a Synchronize Task rather than logging it as a hard failure.
func IsMismatch(err error) bool {
	_, ok := err.(mismatchError)
	return ok
}

// AbortActiveBatch releases the active batch task without running the
// publish reconciliation path, handing the batch back to Assembly (via the
// caller's DelayBatch/SkipBatches as appropriate) for a later retry -- used
// when a storage error aborts execution mid-batch or a contract is removed
// mid-task.
func (c *ContractCoordinator) AbortActiveBatch() {
	c.finishBatchTask()
}

// SynchronizeTarget returns the pending synchronize request's modification
// id and target storage hash, and whether one is pending.
func (c *ContractCoordinator) SynchronizeTarget() (common.Key32, common.StorageHash, bool) {
	return c.syncModID, c.syncTarget, c.synchronizeRequested
}

// ClearSynchronizeRequest clears the pending synchronize request, called
// once the Synchronize Task has successfully resynchronized storage.
func (c *ContractCoordinator) ClearSynchronizeRequest() { c.synchronizeRequested = false }

// RemovePending reports whether a Remove request is outstanding.
func (c *ContractCoordinator) RemovePending() bool { return c.removeRequested }

// ActiveBatchIndex returns the batch index BatchTask is currently working on
// and true, or false if no BatchExecutionTask is active.
func (c *ContractCoordinator) ActiveBatchIndex() (uint64, bool) {
	if c.Active != ActiveBatchExecution || c.BatchTask == nil {
		return 0, false
	}
	return c.BatchTask.Batch.BatchIndex, true
}

func (c *ContractCoordinator) finishBatchTask() {
	c.Active = ActiveNone
	c.BatchTask = nil
	c.Quorum = nil
	c.Buffers.EvictBelow(c.Assembler.MinBatchIndex())
}

func decodePoint(b [64]byte) poex.Point {
	return poex.DecodePointBytes(b[:])
}
