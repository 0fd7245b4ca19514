// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package opinion implements the SuccessfulEndBatchOpinion and
// UnsuccessfulEndBatchOpinion types: canonical serialization, Ed25519
// signing/verification, peer-opinion validation, the quorum rule, and
// multisig assembly.
package opinion

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// CallExecutionOpinion is one executor's view of one call inside a batch.
type CallExecutionOpinion struct {
	CallId                  common.CallId
	IsManual                bool
	Status                  uint16 // 0 success, 1 sandbox failure
	ReleasedTransactionHash common.TransactionHash
	ExecutionPaymentUsed    uint64
	DownloadPaymentUsed     uint64
}

// SuccessfulEndBatchOpinion is one executor's canonical opinion on the
// outcome of a successfully executed batch.
type SuccessfulEndBatchOpinion struct {
	ContractKey                    common.ContractKey
	BatchIndex                     uint64
	AutomaticExecutionsCheckedUpTo uint64
	StorageHash                    common.StorageHash
	UsedSize                       uint64
	MetaSize                       uint64
	PoExVerificationInfo           poex.Point
	CallsExecutionInfo             []CallExecutionOpinion
	Proof                          poex.Proof
	ExecutorKey                    common.ExecutorKey
	Signature                      common.Signature
}

// UnsuccessfulEndBatchOpinion is SuccessfulEndBatchOpinion's counterpart for
// a batch the executor could not apply to storage: the same shape minus
// storage/hash fields.
type UnsuccessfulEndBatchOpinion struct {
	ContractKey                    common.ContractKey
	BatchIndex                     uint64
	AutomaticExecutionsCheckedUpTo uint64
	CallsExecutionInfo             []CallExecutionOpinion
	Proof                          poex.Proof
	ExecutorKey                    common.ExecutorKey
	Signature                      common.Signature
}

func putU64(buf *[]byte, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	*buf = append(*buf, b[:]...)
}

func putU16(buf *[]byte, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	*buf = append(*buf, b[:]...)
}

func putBool(buf *[]byte, v bool) {
	if v {
		*buf = append(*buf, 1)
	} else {
		*buf = append(*buf, 0)
	}
}

func putPoint(buf *[]byte, p poex.Point) { *buf = append(*buf, p.Bytes()...) }
func putScalar(buf *[]byte, s poex.Scalar) { *buf = append(*buf, s.Bytes()...) }

func putProof(buf *[]byte, p poex.Proof) {
	putU64(buf, p.InitialBatch)
	putPoint(buf, p.Challenge.F)
	putScalar(buf, p.Challenge.K)
	putPoint(buf, p.Batch.T)
	putScalar(buf, p.Batch.R)
}

// Canonical returns the exact byte sequence the opinion is signed over:
// contractKey, batchIndex, storageHash, usedSize, metaSize,
// PoExVerificationInfo, then per call {callId, isManual, status,
// releasedTransactionHash}, the PoEx proof, then per call
// {executionPaymentUsed, downloadPaymentUsed}.
func (o SuccessfulEndBatchOpinion) Canonical() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, o.ContractKey[:]...)
	putU64(&buf, o.BatchIndex)
	buf = append(buf, o.StorageHash[:]...)
	putU64(&buf, o.UsedSize)
	putU64(&buf, o.MetaSize)
	putPoint(&buf, o.PoExVerificationInfo)

	for _, c := range o.CallsExecutionInfo {
		buf = append(buf, c.CallId[:]...)
		putBool(&buf, c.IsManual)
		putU16(&buf, c.Status)
		buf = append(buf, c.ReleasedTransactionHash[:]...)
	}

	putProof(&buf, o.Proof)

	for _, c := range o.CallsExecutionInfo {
		putU64(&buf, c.ExecutionPaymentUsed)
		putU64(&buf, c.DownloadPaymentUsed)
	}

	return buf
}

// Canonical is UnsuccessfulEndBatchOpinion's equivalent: contractKey,
// batchIndex, per call {callId, isManual}, the PoEx proof, then per call
// {executionPaymentUsed, downloadPaymentUsed}. Unlike the successful form
// it carries no storage fields, no PoExVerificationInfo, and no per-call
// status or releasedTransactionHash.
func (o UnsuccessfulEndBatchOpinion) Canonical() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, o.ContractKey[:]...)
	putU64(&buf, o.BatchIndex)

	for _, c := range o.CallsExecutionInfo {
		buf = append(buf, c.CallId[:]...)
		putBool(&buf, c.IsManual)
	}

	putProof(&buf, o.Proof)

	for _, c := range o.CallsExecutionInfo {
		putU64(&buf, c.ExecutionPaymentUsed)
		putU64(&buf, c.DownloadPaymentUsed)
	}

	return buf
}

// Sign signs o's canonical serialization with priv and stores the result in
// o.Signature; priv must correspond to o.ExecutorKey.
func (o *SuccessfulEndBatchOpinion) Sign(priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, o.Canonical())
	copy(o.Signature[:], sig)
}

// Verify checks that o.Signature is valid for o.ExecutorKey over o's
// canonical serialization.
func (o SuccessfulEndBatchOpinion) Verify() bool {
	return ed25519.Verify(ed25519.PublicKey(o.ExecutorKey[:]), o.Canonical(), o.Signature[:])
}

// Sign/Verify: UnsuccessfulEndBatchOpinion equivalents.
func (o *UnsuccessfulEndBatchOpinion) Sign(priv ed25519.PrivateKey) {
	sig := ed25519.Sign(priv, o.Canonical())
	copy(o.Signature[:], sig)
}

func (o UnsuccessfulEndBatchOpinion) Verify() bool {
	return ed25519.Verify(ed25519.PublicKey(o.ExecutorKey[:]), o.Canonical(), o.Signature[:])
}

// EnoughOpinions is the quorum rule: 3k > 2n, i.e. strictly more than two
// thirds of n executors, counting the local opinion.
func EnoughOpinions(k, n int) bool {
	return 3*k > 2*n
}

// MinQuorumSize is the smallest k satisfying EnoughOpinions(k, n), i.e.
// floor(2n/3) + 1.
func MinQuorumSize(n int) int {
	for k := 1; k <= n; k++ {
		if EnoughOpinions(k, n) {
			return k
		}
	}
	return n
}
