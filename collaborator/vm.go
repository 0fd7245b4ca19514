// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package collaborator

import (
	"context"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// VmErrorKind enumerates the VM collaborator's error arm.
type VmErrorKind int

const (
	VmUnavailable VmErrorKind = iota
	VmIncorrectQuery
)

// VmError is the expected<T, VmError> error arm of VirtualMachine.ExecuteCall.
type VmError struct {
	Kind VmErrorKind
	Err  error
}

func (e *VmError) Error() string { return e.Err.Error() }
func (e *VmError) Unwrap() error { return e.Err }

// CallExecutionResult is the VM's reply to ExecuteCall.
type CallExecutionResult struct {
	Success                    bool
	ReturnCode                 int32
	ExecutionGasConsumed       uint64
	DownloadGasConsumed        uint64
	ProofOfExecutionSecretData uint64
	Transaction                *ReleasedTransaction
}

// ReleasedTransaction is a transaction a call emitted during execution,
// later aggregate-signed and (on success) broadcast by the batch task.
type ReleasedTransaction struct {
	Hash    common.TransactionHash
	Payload []byte
}

// InternetHandler is invoked by the VM during execution to perform bounded
// outbound HTTP(S) requests on the call's behalf.
type InternetHandler interface {
	Fetch(ctx context.Context, url string, body []byte) ([]byte, error)
}

// BlockchainCallHandler is invoked by the VM to answer blockchain-context
// queries specific to one call. TransactionHash/ServicePayments are only
// meaningful for manual calls.
type BlockchainCallHandler interface {
	TransactionHash() (common.TransactionHash, bool)
	ServicePayments() ([]model.ServicePayment, bool)
	CallerKey() common.CallerKey
	BlockHeight() uint64
	ExecutionPayment() uint64
	DownloadPayment() uint64
}

// StorageCallHandler is invoked by the VM to perform sandboxed file/FS
// operations for one call, rooted at a "<driveKey>/<callId>" path prefix
// inside the sandbox.
type StorageCallHandler interface {
	Storage
	PathPrefix() string
}

// VirtualMachine is the WASM execution collaborator.
type VirtualMachine interface {
	ExecuteCall(ctx context.Context, request model.CallRequest, internet InternetHandler, blockchain BlockchainCallHandler, storage StorageCallHandler, gasLimit uint64) (CallExecutionResult, error)
}
