// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package model holds the data-model types shared across package
// boundaries (assembly, task, opinion, coordinator): call requests,
// batches, and the on-chain batch-result shapes. Types that are owned by a
// single package (e.g. the PoEx accumulator's internal state) live with
// that package instead.
package model

import "github.com/proximax-storage/xpx-supercontract-executor/common"

// CallLevel distinguishes how a CallRequest entered the batch assembly.
type CallLevel uint8

const (
	// Manual calls are submitted on-chain by a caller and carry payment info.
	Manual CallLevel = iota
	// Automatic calls are appended to a batch's "automatic tail" once an
	// autorun probe for the block decides one should run.
	Automatic
	// Autorun is the synthetic probe call itself; it never appears inside a
	// committed Batch or a DraftBatch, only in the probe request handed to
	// the VM.
	Autorun
)

func (l CallLevel) String() string {
	switch l {
	case Manual:
		return "MANUAL"
	case Automatic:
		return "AUTOMATIC"
	case Autorun:
		return "AUTORUN"
	default:
		return "UNKNOWN"
	}
}

// ServicePayment is one of the additional payments a MANUAL call's
// transaction may have attached (e.g. payment to a third-party service the
// call depends on).
type ServicePayment struct {
	ServiceKey common.Key32
	Amount     uint64
}

// CallRequest is immutable once created.
type CallRequest struct {
	CallId           common.CallId
	File             string
	Function         string
	Arguments        []byte
	ExecutionPayment uint64
	DownloadPayment  uint64
	CallerKey        common.CallerKey
	BlockHeight      uint64
	Level            CallLevel

	// Manual-only fields; zero/nil for AUTOMATIC and AUTORUN calls.
	TransactionHash common.TransactionHash
	ServicePayments []ServicePayment
}

// IsManual reports whether this call was submitted on-chain by a caller.
func (c CallRequest) IsManual() bool { return c.Level == Manual }

// Batch is an ordered, contract-local set of calls executed as one atomic
// unit. All call BlockHeights are <= BlockHeightUpperBound; BatchIndex
// increases strictly per contract; within a batch MANUAL calls precede at
// most one AUTOMATIC "tail" call.
type Batch struct {
	BatchIndex            uint64
	BlockHeightUpperBound uint64
	Calls                 []CallRequest
}

// LastCall returns the batch's last call and true, or the zero value and
// false if the batch is empty.
func (b Batch) LastCall() (CallRequest, bool) {
	if len(b.Calls) == 0 {
		return CallRequest{}, false
	}
	return b.Calls[len(b.Calls)-1], true
}

// HasAutomaticTail reports whether the batch's last call is AUTOMATIC.
func (b Batch) HasAutomaticTail() bool {
	last, ok := b.LastCall()
	return ok && last.Level == Automatic
}

// WithoutAutomaticTail returns a copy of b with its AUTOMATIC tail call (if
// any) dropped. Used by delayBatch/setAutomaticExecutionsEnabledSince when
// a batch's tail has become invalid for the height it targets.
func (b Batch) WithoutAutomaticTail() Batch {
	if !b.HasAutomaticTail() {
		return b
	}
	out := b
	out.Calls = append([]CallRequest(nil), b.Calls[:len(b.Calls)-1]...)
	return out
}
