// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package opinion

import (
	"fmt"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// RejectionReason names the specific field that failed validation. Rejected
// opinions are logged at warn level with the reason, never treated as a
// fatal error.
type RejectionReason string

const (
	ReasonUnknownPeer            RejectionReason = "unknown_peer"
	ReasonAutomaticCheckMismatch RejectionReason = "automatic_executions_checked_up_to_mismatch"
	ReasonVerificationInfoMismatch RejectionReason = "poex_verification_info_mismatch"
	ReasonStorageHashMismatch     RejectionReason = "storage_hash_mismatch"
	ReasonUsedSizeMismatch        RejectionReason = "used_size_mismatch"
	ReasonMetaSizeMismatch        RejectionReason = "meta_size_mismatch"
	ReasonCallCountMismatch       RejectionReason = "call_count_mismatch"
	ReasonCallIdMismatch          RejectionReason = "call_id_mismatch"
	ReasonCallManualMismatch      RejectionReason = "call_is_manual_mismatch"
	ReasonCallStatusMismatch      RejectionReason = "call_status_mismatch"
	ReasonCallTxHashMismatch      RejectionReason = "call_released_transaction_hash_mismatch"
	ReasonPaymentExceedsDeclared  RejectionReason = "payment_used_exceeds_declared"
	ReasonSignatureInvalid        RejectionReason = "signature_invalid"
	ReasonProofInvalid            RejectionReason = "poex_proof_invalid"
)

// ValidationError reports exactly which field failed; an invalid opinion is
// silently rejected, never treated as a fatal error.
type ValidationError struct {
	Reason RejectionReason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return string(e.Reason)
}

func reject(reason RejectionReason, detail string) error {
	return &ValidationError{Reason: reason, Detail: detail}
}

// DeclaredPayments gives, per call, the caller-declared payment ceiling the
// peer's executionPaymentUsed/downloadPaymentUsed must not exceed: an
// integrity cap, not an equality check.
type DeclaredPayments struct {
	ExecutionPayment uint64
	DownloadPayment  uint64
}

// ValidateSuccessful checks a peer's SuccessfulEndBatchOpinion against the
// local opinion for the same batch. declared must have one entry per call,
// in the same order as local.CallsExecutionInfo.
func ValidateSuccessful(local, peer SuccessfulEndBatchOpinion, declared []DeclaredPayments, acc *poex.Accumulator, peerDir poex.DirectoryEntry) error {
	if local.AutomaticExecutionsCheckedUpTo != peer.AutomaticExecutionsCheckedUpTo {
		return reject(ReasonAutomaticCheckMismatch, "")
	}
	if !local.PoExVerificationInfo.Equal(peer.PoExVerificationInfo) {
		return reject(ReasonVerificationInfoMismatch, "")
	}
	if local.StorageHash != peer.StorageHash {
		return reject(ReasonStorageHashMismatch, "")
	}
	if local.UsedSize != peer.UsedSize {
		return reject(ReasonUsedSizeMismatch, "")
	}
	if local.MetaSize != peer.MetaSize {
		return reject(ReasonMetaSizeMismatch, "")
	}
	if len(local.CallsExecutionInfo) != len(peer.CallsExecutionInfo) {
		return reject(ReasonCallCountMismatch, "")
	}
	for i, lc := range local.CallsExecutionInfo {
		pc := peer.CallsExecutionInfo[i]
		if lc.CallId != pc.CallId {
			return reject(ReasonCallIdMismatch, fmt.Sprintf("index %d", i))
		}
		if lc.IsManual != pc.IsManual {
			return reject(ReasonCallManualMismatch, fmt.Sprintf("call %s", lc.CallId))
		}
		if lc.Status != pc.Status {
			return reject(ReasonCallStatusMismatch, fmt.Sprintf("call %s", lc.CallId))
		}
		if lc.ReleasedTransactionHash != pc.ReleasedTransactionHash {
			return reject(ReasonCallTxHashMismatch, fmt.Sprintf("call %s", lc.CallId))
		}
		if i < len(declared) {
			if pc.ExecutionPaymentUsed > declared[i].ExecutionPayment {
				return reject(ReasonPaymentExceedsDeclared, fmt.Sprintf("call %s execution", lc.CallId))
			}
			if pc.DownloadPaymentUsed > declared[i].DownloadPayment {
				return reject(ReasonPaymentExceedsDeclared, fmt.Sprintf("call %s download", lc.CallId))
			}
		}
	}
	if !peer.Verify() {
		return reject(ReasonSignatureInvalid, "")
	}
	if !acc.VerifyProof(peer.ExecutorKey, peerDir, peer.Proof, peer.BatchIndex, peer.PoExVerificationInfo) {
		return reject(ReasonProofInvalid, "")
	}
	return nil
}

// ValidateUnsuccessful checks a peer's UnsuccessfulEndBatchOpinion: the
// subset of ValidateSuccessful's checks that does not refer to storage
// fields, and uses the identity group element as verification info.
func ValidateUnsuccessful(local, peer UnsuccessfulEndBatchOpinion, acc *poex.Accumulator, peerDir poex.DirectoryEntry) error {
	if len(local.CallsExecutionInfo) != len(peer.CallsExecutionInfo) {
		return reject(ReasonCallCountMismatch, "")
	}
	for i, lc := range local.CallsExecutionInfo {
		pc := peer.CallsExecutionInfo[i]
		if lc.CallId != pc.CallId {
			return reject(ReasonCallIdMismatch, fmt.Sprintf("index %d", i))
		}
		if lc.IsManual != pc.IsManual {
			return reject(ReasonCallManualMismatch, fmt.Sprintf("call %s", lc.CallId))
		}
	}
	if !peer.Verify() {
		return reject(ReasonSignatureInvalid, "")
	}
	if !acc.VerifyProof(peer.ExecutorKey, peerDir, peer.Proof, peer.BatchIndex, poex.IdentityPoint()) {
		return reject(ReasonProofInvalid, "")
	}
	return nil
}

// PeerOpinion is used by AssembleSuccessfulMultisig and
// AssembleUnsuccessfulMultisig; a caller building the multisig
// iterates exactly one local opinion plus N accepted peer opinions, keeping
// arrival order within each call's participation vector.
type PeerOpinion struct {
	ExecutorKey common.ExecutorKey
	Signature   common.Signature
	Proof       poex.Proof
	// CallParticipation aligns with local.CallsExecutionInfo by index.
	CallParticipation []common.Signature
}
