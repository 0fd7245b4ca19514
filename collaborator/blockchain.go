// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package collaborator

import (
	"context"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

// PublishedEndBatchInfo is the authoritative on-chain result of a batch.
type PublishedEndBatchInfo struct {
	BatchIndex                      uint64
	AutomaticExecutionsCheckedUpTo  uint64
	AutomaticExecutionsEnabledSince *uint64
	BatchSuccess                    bool
	DriveState                     common.StorageHash
	PoExVerificationInfo           [64]byte // encoded poex.Point; see opinion.EncodePoint
	Cosigners                       []common.ExecutorKey
}

// FailedEndBatchInfo describes an end-batch transaction that failed to land
// on-chain before the multisig was emitted.
type FailedEndBatchInfo struct {
	BatchIndex uint64
}

// CallParticipation is one executor's signed contribution to one call's
// released transaction, appended to the multisig's per-call participation
// vector.
type CallParticipation struct {
	ExecutorKey common.ExecutorKey
	Signature   common.Signature
}

// EndBatchTransactionInfo is the multisig end-batch transaction handed to
// the blockchain client once quorum and the approval-expectation delay have
// both elapsed.
type EndBatchTransactionInfo struct {
	ContractKey                    common.ContractKey
	BatchIndex                     uint64
	Successful                     bool
	AutomaticExecutionsCheckedUpTo uint64
	StorageHash                    common.StorageHash
	UsedSize, MetaSize             uint64
	PoExVerificationInfo           [64]byte
	ExecutorKeys                   []common.ExecutorKey
	Signatures                     []common.Signature
	Proofs                         []EncodedProof
	CallParticipations             [][]CallParticipation
}

// EncodedProof is the wire form of a poex.Proof (opinion.EncodeProof).
type EncodedProof struct {
	InitialBatch uint64
	F, T         [64]byte
	K, R         [32]byte
}

// SingleTransactionInfo is a standalone single-signature transaction: used
// when synchronization completes, or when the local executor is absent
// from a published batch's cosigners.
type SingleTransactionInfo struct {
	ContractKey common.ContractKey
	BatchIndex  uint64
	ExecutorKey common.ExecutorKey
	Signature   common.Signature
	Proof       EncodedProof
}

// EventHandler receives blockchain events pushed in to the executor. Each
// handler returns whether it "consumed" the event in a way the caller
// cares about; the executor event loop ignores the return value today but
// it is kept so a future multi-coordinator dispatch can short-circuit.
type EventHandler interface {
	OnBlockPublished(height uint64) bool
	OnEndBatchExecutionPublished(info PublishedEndBatchInfo) bool
	OnEndBatchExecutionSingleTransactionPublished(info SingleTransactionInfo) bool
	OnEndBatchExecutionFailed(info FailedEndBatchInfo) bool
	OnStorageSynchronizedPublished(batchIndex uint64) bool
}

// Blockchain is the blockchain collaborator: an event feed in, and a set of
// "ready to publish" calls out.
type Blockchain interface {
	Subscribe(handler EventHandler)
	BlockHeight(ctx context.Context, hash common.BlockHash) (uint64, error)

	EndBatchTransactionIsReady(ctx context.Context, info EndBatchTransactionInfo) error
	EndBatchSingleTransactionIsReady(ctx context.Context, info SingleTransactionInfo) error
	SynchronizationSingleTransactionIsReady(ctx context.Context, info SingleTransactionInfo) error
	ReleasedTransactionsAreReady(ctx context.Context, contractKey common.ContractKey, batchIndex uint64, txs [][]byte) error
}
