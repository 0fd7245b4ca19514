// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package task

import (
	"context"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

// InitOutcome is InitTask.Poll's result.
type InitOutcome int

const (
	// InitPending means the contract's drive has not yet reached the
	// deployment base modification id; the caller should re-arm a
	// serviceUnavailableTimeoutMs timer and poll again.
	InitPending InitOutcome = iota
	// InitReady means the contract has no historical batches and the drive
	// already sits at the deployment base; batch execution may start.
	InitReady
	// InitNeedsSynchronize means the contract has historical batches and
	// must wait for the next EndBatchExecutionPublished event before a
	// follow-up Synchronize Task can run.
	InitNeedsSynchronize
)

// InitTask brings a newly assigned contract to a state where batch
// execution can begin.
type InitTask struct {
	ContractKey                         common.ContractKey
	DriveKey                             common.DriveKey
	ContractDeploymentBaseModificationID common.Key32
	HasHistoricalBatches                 bool

	Storage collaborator.Storage
}

// Poll checks the contract's current modification id against the
// deployment base. A storage error other than storage_unavailable during
// this poll is logged at error level and retried identically, matching the
// original's behavior of not special-casing it.
func (t *InitTask) Poll(ctx context.Context) (InitOutcome, error) {
	if t.HasHistoricalBatches {
		return InitNeedsSynchronize, nil
	}

	actual, err := t.Storage.ActualModificationID(ctx, t.DriveKey)
	if err != nil {
		if !collaborator.IsUnavailable(err) {
			logger.Error("init task: unexpected storage error during modification-id poll", "contract", t.ContractKey, "err", err)
		}
		return InitPending, err
	}

	if actual != t.ContractDeploymentBaseModificationID {
		return InitPending, nil
	}
	return InitReady, nil
}
