// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package opinion

import (
	"crypto/ed25519"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// CheckpointCanonical is the byte sequence signed by a standalone
// single-signature transaction that carries no end-batch opinion of its
// own (the Synchronize Task's post-resync checkpoint): contractKey,
// batchIndex, then the PoEx proof.
func CheckpointCanonical(contractKey common.ContractKey, batchIndex uint64, proof poex.Proof) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, contractKey[:]...)
	putU64(&buf, batchIndex)
	putProof(&buf, proof)
	return buf
}

// SignCheckpoint signs a Synchronize Task's post-resync proof checkpoint.
func SignCheckpoint(priv ed25519.PrivateKey, contractKey common.ContractKey, batchIndex uint64, proof poex.Proof) common.Signature {
	sig := ed25519.Sign(priv, CheckpointCanonical(contractKey, batchIndex, proof))
	var out common.Signature
	copy(out[:], sig)
	return out
}

// VerifyCheckpoint checks a checkpoint signature against executorKey.
func VerifyCheckpoint(executorKey common.ExecutorKey, contractKey common.ContractKey, batchIndex uint64, proof poex.Proof, sig common.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(executorKey[:]), CheckpointCanonical(contractKey, batchIndex, proof), sig[:])
}
