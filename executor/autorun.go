// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package executor

import (
	"context"
	"errors"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// errProbeUnsupported is returned by every probeStorage method: an autorun
// probe decides whether a batch should run and never touches the drive
// itself, so any storage call during one indicates a misbehaving contract.
var errProbeUnsupported = &collaborator.StorageError{Kind: collaborator.PathError, Op: "autorun probe storage access", Err: errors.New("not supported")}

// probeStorage satisfies collaborator.StorageCallHandler with an
// always-unavailable drive view, so ExecuteCall can run an autorun probe
// without the caller standing up a full SandboxModification.
type probeStorage struct{ prefix string }

func (probeStorage) InitiateModifications(context.Context, common.DriveKey, common.Key32) (collaborator.StorageModification, error) {
	return nil, errProbeUnsupported
}
func (probeStorage) SynchronizeStorage(context.Context, common.DriveKey, common.Key32, common.StorageHash) error {
	return errProbeUnsupported
}
func (probeStorage) ActualModificationID(context.Context, common.DriveKey) (common.Key32, error) {
	return common.Key32{}, errProbeUnsupported
}
func (probeStorage) InitiateSandboxModification(context.Context, collaborator.StorageModification, common.CallId) (collaborator.SandboxModification, error) {
	return nil, errProbeUnsupported
}
func (probeStorage) ApplySandboxModification(context.Context, collaborator.SandboxModification, bool) error {
	return errProbeUnsupported
}
func (probeStorage) ApplyStorageModification(context.Context, collaborator.StorageModification, bool) error {
	return errProbeUnsupported
}
func (probeStorage) EvaluateStorageHash(context.Context, collaborator.StorageModification) (collaborator.StorageState, error) {
	return collaborator.StorageState{}, errProbeUnsupported
}
func (probeStorage) Open(context.Context, collaborator.SandboxModification, string, bool) (collaborator.FileHandle, error) {
	return nil, errProbeUnsupported
}
func (probeStorage) PathExist(context.Context, collaborator.SandboxModification, string) (bool, error) {
	return false, errProbeUnsupported
}
func (probeStorage) IsFile(context.Context, collaborator.SandboxModification, string) (bool, error) {
	return false, errProbeUnsupported
}
func (probeStorage) FileSize(context.Context, collaborator.SandboxModification, string) (uint64, error) {
	return 0, errProbeUnsupported
}
func (probeStorage) CreateDir(context.Context, collaborator.SandboxModification, string) error {
	return errProbeUnsupported
}
func (probeStorage) Move(context.Context, collaborator.SandboxModification, string, string) error {
	return errProbeUnsupported
}
func (probeStorage) Remove(context.Context, collaborator.SandboxModification, string) error {
	return errProbeUnsupported
}
func (probeStorage) CreateIterator(context.Context, collaborator.SandboxModification, string) (collaborator.DirIterator, error) {
	return nil, errProbeUnsupported
}
func (p probeStorage) PathPrefix() string { return p.prefix }

// probeBlockchain answers a probe's BlockchainCallHandler queries; an
// autorun probe is never a manual call, so transaction hash and service
// payments are always absent.
type probeBlockchain struct {
	height   uint64
	gasLimit uint64
}

func (probeBlockchain) TransactionHash() (common.TransactionHash, bool)      { return common.TransactionHash{}, false }
func (probeBlockchain) ServicePayments() ([]model.ServicePayment, bool)     { return nil, false }
func (probeBlockchain) CallerKey() common.CallerKey                         { return common.CallerKey{} }
func (p probeBlockchain) BlockHeight() uint64                                { return p.height }
func (p probeBlockchain) ExecutionPayment() uint64                           { return p.gasLimit }
func (probeBlockchain) DownloadPayment() uint64                              { return 0 }

// probeInternet denies every outbound fetch: a probe is a cheap yes/no
// gate, not a place to spend the contract's internet budget.
type probeInternet struct{}

func (probeInternet) Fetch(context.Context, string, []byte) ([]byte, error) {
	return nil, errors.New("autorun probe: internet access not available")
}

// runAutorunProbe dispatches one AutorunProbeRequest to the VM synchronously
// and folds the outcome straight back into the Assembler, mirroring how a
// manual/automatic call's result would be reported, but without ever
// touching Storage.
func (r *contractRuntime) runAutorunProbe(ctx context.Context, height uint64, callID common.CallId, file, function string, gasLimit uint64) {
	call := model.CallRequest{
		CallId:      callID,
		File:        file,
		Function:    function,
		BlockHeight: height,
		Level:       model.Autorun,
	}

	result, err := r.vm.ExecuteCall(ctx, call, probeInternet{}, probeBlockchain{height: height, gasLimit: gasLimit}, probeStorage{prefix: r.driveKey.Hex() + "/" + callID.Hex()}, gasLimit)
	if err != nil {
		logger.Warn("autorun probe failed", "contract", r.key, "height", height, "err", err)
		r.asm.CompleteAutorunProbe(height, false, -1)
		return
	}

	r.asm.CompleteAutorunProbe(height, result.Success, result.ReturnCode)
}
