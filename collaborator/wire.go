// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package collaborator

import (
	"encoding/binary"
	"fmt"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

// EncodePublishedEndBatchInfo/DecodePublishedEndBatchInfo checkpoint a
// PublishedEndBatchInfo to the local store for the window between it
// arriving ahead of its batch and the Coordinator consuming it (see
// Buffers.Publications).

var errShortPublishedInfo = fmt.Errorf("collaborator: wire: short buffer")

func EncodePublishedEndBatchInfo(info PublishedEndBatchInfo) []byte {
	buf := make([]byte, 0, 128+len(info.Cosigners)*common.KeySize)
	putWireU64(&buf, info.BatchIndex)
	putWireU64(&buf, info.AutomaticExecutionsCheckedUpTo)
	if info.AutomaticExecutionsEnabledSince != nil {
		buf = append(buf, 1)
		putWireU64(&buf, *info.AutomaticExecutionsEnabledSince)
	} else {
		buf = append(buf, 0)
		putWireU64(&buf, 0)
	}
	putWireBool(&buf, info.BatchSuccess)
	buf = append(buf, info.DriveState[:]...)
	buf = append(buf, info.PoExVerificationInfo[:]...)
	putWireU64(&buf, uint64(len(info.Cosigners)))
	for _, c := range info.Cosigners {
		buf = append(buf, c[:]...)
	}
	return buf
}

func DecodePublishedEndBatchInfo(b []byte) (PublishedEndBatchInfo, error) {
	var info PublishedEndBatchInfo
	var err error

	info.BatchIndex, b, err = getWireU64(b)
	if err != nil {
		return info, err
	}
	info.AutomaticExecutionsCheckedUpTo, b, err = getWireU64(b)
	if err != nil {
		return info, err
	}
	if len(b) < 1 {
		return info, errShortPublishedInfo
	}
	hasSince := b[0] != 0
	b = b[1:]
	since, rest, err := getWireU64(b)
	if err != nil {
		return info, err
	}
	b = rest
	if hasSince {
		info.AutomaticExecutionsEnabledSince = &since
	}
	info.BatchSuccess, b, err = getWireBool(b)
	if err != nil {
		return info, err
	}
	if len(b) < common.KeySize {
		return info, errShortPublishedInfo
	}
	copy(info.DriveState[:], b[:common.KeySize])
	b = b[common.KeySize:]
	if len(b) < len(info.PoExVerificationInfo) {
		return info, errShortPublishedInfo
	}
	copy(info.PoExVerificationInfo[:], b[:len(info.PoExVerificationInfo)])
	b = b[len(info.PoExVerificationInfo):]

	count, b, err := getWireU64(b)
	if err != nil {
		return info, err
	}
	info.Cosigners = make([]common.ExecutorKey, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(b) < common.KeySize {
			return info, errShortPublishedInfo
		}
		var k common.ExecutorKey
		copy(k[:], b[:common.KeySize])
		b = b[common.KeySize:]
		info.Cosigners = append(info.Cosigners, k)
	}
	return info, nil
}

func putWireU64(buf *[]byte, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	*buf = append(*buf, b[:]...)
}

func getWireU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errShortPublishedInfo
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func putWireBool(buf *[]byte, v bool) {
	if v {
		*buf = append(*buf, 1)
	} else {
		*buf = append(*buf, 0)
	}
}

func getWireBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, nil, errShortPublishedInfo
	}
	return b[0] != 0, b[1:], nil
}
