// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// fakeModification is the StorageModification handle unavailableAtCallStorage
// hands back from InitiateModifications.
type fakeModification struct{ id common.Key32 }

func (fakeModification) ID() string                { return "mod" }
func (fakeModification) Cancel()                    {}
func (m fakeModification) ModificationID() common.Key32 { return m.id }

type fakeSandbox struct{ callID common.CallId }

func (fakeSandbox) ID() string                  { return "sbx" }
func (fakeSandbox) Cancel()                      {}
func (s fakeSandbox) CallID() common.CallId     { return s.callID }

// unavailableAtCallStorage succeeds InitiateModifications, then fails
// InitiateSandboxModification with storage_unavailable on the
// (1-indexed) failAtCall'th call, simulating storage going unavailable
// partway through a batch.
type unavailableAtCallStorage struct {
	collaborator.Storage
	failAtCall int
	calls      int
}

func (s *unavailableAtCallStorage) InitiateModifications(ctx context.Context, driveKey common.DriveKey, modificationID common.Key32) (collaborator.StorageModification, error) {
	return fakeModification{id: modificationID}, nil
}

func (s *unavailableAtCallStorage) InitiateSandboxModification(ctx context.Context, mod collaborator.StorageModification, callID common.CallId) (collaborator.SandboxModification, error) {
	s.calls++
	if s.calls == s.failAtCall {
		return nil, &collaborator.StorageError{Kind: collaborator.StorageUnavailable, Op: "initiateSandboxModification"}
	}
	return fakeSandbox{callID: callID}, nil
}

func (s *unavailableAtCallStorage) ApplySandboxModification(ctx context.Context, sbx collaborator.SandboxModification, success bool) error {
	return nil
}

type alwaysSucceedsVM struct{}

func (alwaysSucceedsVM) ExecuteCall(ctx context.Context, request model.CallRequest, internet collaborator.InternetHandler, blockchain collaborator.BlockchainCallHandler, storage collaborator.StorageCallHandler, gasLimit uint64) (collaborator.CallExecutionResult, error) {
	return collaborator.CallExecutionResult{Success: true}, nil
}

// TestExecuteReturnsStorageUnavailableMidBatch covers S6: storage going
// unavailable when the sandbox for the third of five calls is opened must
// surface as an
// IsStorageUnavailable error rather than a hard task failure, so the
// contract runtime can delayBatch and retry instead of aborting for good.
func TestExecuteReturnsStorageUnavailableMidBatch(t *testing.T) {
	calls := make([]model.CallRequest, 5)
	for i := range calls {
		calls[i] = model.CallRequest{CallId: common.Key32{byte(i + 1)}}
	}

	bt := &BatchExecutionTask{
		Batch:   model.Batch{BatchIndex: 0, Calls: calls},
		Storage: &unavailableAtCallStorage{failAtCall: 3},
		VM:      alwaysSucceedsVM{},
	}

	_, err := bt.Execute(context.Background())

	require.Error(t, err)
	assert.True(t, IsStorageUnavailable(err))
}
