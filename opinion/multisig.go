// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package opinion

import (
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// EncodeProof renders a poex.Proof into its wire form for the blockchain
// collaborator.
func EncodeProof(p poex.Proof) collaborator.EncodedProof {
	var enc collaborator.EncodedProof
	enc.InitialBatch = p.InitialBatch
	copy(enc.F[:], p.Challenge.F.Bytes())
	copy(enc.K[:], p.Challenge.K.Bytes())
	copy(enc.T[:], p.Batch.T.Bytes())
	copy(enc.R[:], p.Batch.R.Bytes())
	return enc
}

// EncodePoint renders a poex.Point into the fixed-width wire form used by
// PublishedEndBatchInfo/EndBatchTransactionInfo.
func EncodePoint(p poex.Point) [64]byte {
	var out [64]byte
	copy(out[:], p.Bytes())
	return out
}

// AssembleSuccessfulMultisig builds the multisig transaction body, taking
// the local opinion as canonical for the transaction body. For each
// accepted peer opinion it appends the peer's executorKey, signature, and
// proof to parallel vectors, and for each call appends the peer's per-call
// participation signature to that call's participation vector. The local
// peer is included first.
func AssembleSuccessfulMultisig(local SuccessfulEndBatchOpinion, peers []PeerOpinion) collaborator.EndBatchTransactionInfo {
	info := collaborator.EndBatchTransactionInfo{
		ContractKey:                    local.ContractKey,
		BatchIndex:                     local.BatchIndex,
		Successful:                     true,
		AutomaticExecutionsCheckedUpTo: local.AutomaticExecutionsCheckedUpTo,
		StorageHash:                    local.StorageHash,
		UsedSize:                       local.UsedSize,
		MetaSize:                       local.MetaSize,
		PoExVerificationInfo:           EncodePoint(local.PoExVerificationInfo),
	}

	info.ExecutorKeys = append(info.ExecutorKeys, local.ExecutorKey)
	info.Signatures = append(info.Signatures, local.Signature)
	info.Proofs = append(info.Proofs, EncodeProof(local.Proof))

	info.CallParticipations = make([][]collaborator.CallParticipation, len(local.CallsExecutionInfo))
	for i := range local.CallsExecutionInfo {
		info.CallParticipations[i] = append(info.CallParticipations[i], collaborator.CallParticipation{
			ExecutorKey: local.ExecutorKey,
			Signature:   local.Signature,
		})
	}

	for _, p := range peers {
		info.ExecutorKeys = append(info.ExecutorKeys, p.ExecutorKey)
		info.Signatures = append(info.Signatures, p.Signature)
		info.Proofs = append(info.Proofs, EncodeProof(p.Proof))
		for i := range info.CallParticipations {
			if i < len(p.CallParticipation) {
				info.CallParticipations[i] = append(info.CallParticipations[i], collaborator.CallParticipation{
					ExecutorKey: p.ExecutorKey,
					Signature:   p.CallParticipation[i],
				})
			}
		}
	}

	return info
}

// AssembleUnsuccessfulMultisig is AssembleSuccessfulMultisig's counterpart
// for the unsuccessful-quorum path; it carries no storage fields and uses
// the identity point as verification info.
func AssembleUnsuccessfulMultisig(local UnsuccessfulEndBatchOpinion, peers []PeerOpinion) collaborator.EndBatchTransactionInfo {
	info := collaborator.EndBatchTransactionInfo{
		ContractKey:                    local.ContractKey,
		BatchIndex:                     local.BatchIndex,
		Successful:                     false,
		AutomaticExecutionsCheckedUpTo: local.AutomaticExecutionsCheckedUpTo,
		PoExVerificationInfo:           EncodePoint(poex.IdentityPoint()),
	}

	info.ExecutorKeys = append(info.ExecutorKeys, local.ExecutorKey)
	info.Signatures = append(info.Signatures, local.Signature)
	info.Proofs = append(info.Proofs, EncodeProof(local.Proof))

	for _, p := range peers {
		info.ExecutorKeys = append(info.ExecutorKeys, p.ExecutorKey)
		info.Signatures = append(info.Signatures, p.Signature)
		info.Proofs = append(info.Proofs, EncodeProof(p.Proof))
	}

	return info
}

// SingleTransaction builds a standalone single-signature transaction,
// used when the local executor is absent from a published batch's
// cosigners, or when a Synchronize Task completes.
func SingleTransaction(contractKey common.ContractKey, batchIndex uint64, executorKey common.ExecutorKey, signature common.Signature, proof poex.Proof) collaborator.SingleTransactionInfo {
	return collaborator.SingleTransactionInfo{
		ContractKey: contractKey,
		BatchIndex:  batchIndex,
		ExecutorKey: executorKey,
		Signature:   signature,
		Proof:       EncodeProof(proof),
	}
}
