// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package opinion

import (
	"encoding/binary"
	"fmt"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
)

// Wire encoding is the Messenger collaborator's Message.Content: everything
// Canonical signs over, plus ExecutorKey and Signature, so a peer can
// validate the opinion on receipt without a side channel. It is
// deliberately independent of Canonical's field order/shape so a change to
// one does not silently break the other's bit-exactness (testable property
// 3: serialize/transmit/deserialize/verify must round-trip bit-exactly).

func getU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errShortBuffer
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func getU16(b []byte) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, nil, errShortBuffer
	}
	return binary.BigEndian.Uint16(b[:2]), b[2:], nil
}

func getBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, nil, errShortBuffer
	}
	return b[0] != 0, b[1:], nil
}

func getKey32(b []byte) (common.Key32, []byte, error) {
	var k common.Key32
	if len(b) < common.KeySize {
		return k, nil, errShortBuffer
	}
	copy(k[:], b[:common.KeySize])
	return k, b[common.KeySize:], nil
}

func getSignature(b []byte) (common.Signature, []byte, error) {
	var s common.Signature
	if len(b) < common.SignatureSize {
		return s, nil, errShortBuffer
	}
	copy(s[:], b[:common.SignatureSize])
	return s, b[common.SignatureSize:], nil
}

func getPoint(b []byte) (poex.Point, []byte, error) {
	if len(b) < 64 {
		return poex.Point{}, nil, errShortBuffer
	}
	return poex.DecodePointBytes(b[:64]), b[64:], nil
}

func getScalarBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 32 {
		return nil, nil, errShortBuffer
	}
	return b[:32], b[32:], nil
}

var errShortBuffer = fmt.Errorf("opinion: wire: short buffer")

func getProof(b []byte) (poex.Proof, []byte, error) {
	var p poex.Proof
	var err error
	p.InitialBatch, b, err = getU64(b)
	if err != nil {
		return p, nil, err
	}
	p.Challenge.F, b, err = getPoint(b)
	if err != nil {
		return p, nil, err
	}
	kBytes, rest, err := getScalarBytes(b)
	if err != nil {
		return p, nil, err
	}
	p.Challenge.K = poex.DecodeScalarBytes(kBytes)
	b = rest
	p.Batch.T, b, err = getPoint(b)
	if err != nil {
		return p, nil, err
	}
	rBytes, rest2, err := getScalarBytes(b)
	if err != nil {
		return p, nil, err
	}
	p.Batch.R = poex.DecodeScalarBytes(rBytes)
	b = rest2
	return p, b, nil
}

func putCall(buf *[]byte, c CallExecutionOpinion) {
	*buf = append(*buf, c.CallId[:]...)
	putBool(buf, c.IsManual)
	putU16(buf, c.Status)
	*buf = append(*buf, c.ReleasedTransactionHash[:]...)
	putU64(buf, c.ExecutionPaymentUsed)
	putU64(buf, c.DownloadPaymentUsed)
}

func getCall(b []byte) (CallExecutionOpinion, []byte, error) {
	var c CallExecutionOpinion
	var err error
	c.CallId, b, err = getKey32(b)
	if err != nil {
		return c, nil, err
	}
	c.IsManual, b, err = getBool(b)
	if err != nil {
		return c, nil, err
	}
	c.Status, b, err = getU16(b)
	if err != nil {
		return c, nil, err
	}
	c.ReleasedTransactionHash, b, err = getKey32(b)
	if err != nil {
		return c, nil, err
	}
	c.ExecutionPaymentUsed, b, err = getU64(b)
	if err != nil {
		return c, nil, err
	}
	c.DownloadPaymentUsed, b, err = getU64(b)
	if err != nil {
		return c, nil, err
	}
	return c, b, nil
}

// EncodeSuccessful renders a SuccessfulEndBatchOpinion into its messenger
// wire form.
func EncodeSuccessful(o SuccessfulEndBatchOpinion) []byte {
	buf := make([]byte, 0, 512)
	buf = append(buf, o.ContractKey[:]...)
	putU64(&buf, o.BatchIndex)
	putU64(&buf, o.AutomaticExecutionsCheckedUpTo)
	buf = append(buf, o.StorageHash[:]...)
	putU64(&buf, o.UsedSize)
	putU64(&buf, o.MetaSize)
	putPoint(&buf, o.PoExVerificationInfo)
	putProof(&buf, o.Proof)
	buf = append(buf, o.ExecutorKey[:]...)
	buf = append(buf, o.Signature[:]...)

	putU64(&buf, uint64(len(o.CallsExecutionInfo)))
	for _, c := range o.CallsExecutionInfo {
		putCall(&buf, c)
	}
	return buf
}

// DecodeSuccessful parses the wire form produced by EncodeSuccessful. It
// does not call Verify: the caller validates the signature separately
// (opinion/validate.go) so an unsigned/malformed message is rejected, not
// fatal.
func DecodeSuccessful(b []byte) (SuccessfulEndBatchOpinion, error) {
	var o SuccessfulEndBatchOpinion
	var err error
	o.ContractKey, b, err = getKey32(b)
	if err != nil {
		return o, err
	}
	o.BatchIndex, b, err = getU64(b)
	if err != nil {
		return o, err
	}
	o.AutomaticExecutionsCheckedUpTo, b, err = getU64(b)
	if err != nil {
		return o, err
	}
	o.StorageHash, b, err = getKey32(b)
	if err != nil {
		return o, err
	}
	o.UsedSize, b, err = getU64(b)
	if err != nil {
		return o, err
	}
	o.MetaSize, b, err = getU64(b)
	if err != nil {
		return o, err
	}
	o.PoExVerificationInfo, b, err = getPoint(b)
	if err != nil {
		return o, err
	}
	o.Proof, b, err = getProof(b)
	if err != nil {
		return o, err
	}
	o.ExecutorKey, b, err = getKey32(b)
	if err != nil {
		return o, err
	}
	o.Signature, b, err = getSignature(b)
	if err != nil {
		return o, err
	}

	count, b, err := getU64(b)
	if err != nil {
		return o, err
	}
	o.CallsExecutionInfo = make([]CallExecutionOpinion, 0, count)
	for i := uint64(0); i < count; i++ {
		var c CallExecutionOpinion
		c, b, err = getCall(b)
		if err != nil {
			return o, err
		}
		o.CallsExecutionInfo = append(o.CallsExecutionInfo, c)
	}
	return o, nil
}

// EncodeUnsuccessful/DecodeUnsuccessful mirror EncodeSuccessful/
// DecodeSuccessful, minus the storage fields.
func EncodeUnsuccessful(o UnsuccessfulEndBatchOpinion) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, o.ContractKey[:]...)
	putU64(&buf, o.BatchIndex)
	putU64(&buf, o.AutomaticExecutionsCheckedUpTo)
	putProof(&buf, o.Proof)
	buf = append(buf, o.ExecutorKey[:]...)
	buf = append(buf, o.Signature[:]...)

	putU64(&buf, uint64(len(o.CallsExecutionInfo)))
	for _, c := range o.CallsExecutionInfo {
		putCall(&buf, c)
	}
	return buf
}

func DecodeUnsuccessful(b []byte) (UnsuccessfulEndBatchOpinion, error) {
	var o UnsuccessfulEndBatchOpinion
	var err error
	o.ContractKey, b, err = getKey32(b)
	if err != nil {
		return o, err
	}
	o.BatchIndex, b, err = getU64(b)
	if err != nil {
		return o, err
	}
	o.AutomaticExecutionsCheckedUpTo, b, err = getU64(b)
	if err != nil {
		return o, err
	}
	o.Proof, b, err = getProof(b)
	if err != nil {
		return o, err
	}
	o.ExecutorKey, b, err = getKey32(b)
	if err != nil {
		return o, err
	}
	o.Signature, b, err = getSignature(b)
	if err != nil {
		return o, err
	}

	count, b, err := getU64(b)
	if err != nil {
		return o, err
	}
	o.CallsExecutionInfo = make([]CallExecutionOpinion, 0, count)
	for i := uint64(0); i < count; i++ {
		var c CallExecutionOpinion
		c, b, err = getCall(b)
		if err != nil {
			return o, err
		}
		o.CallsExecutionInfo = append(o.CallsExecutionInfo, c)
	}
	return o, nil
}
