// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package task

import "github.com/proximax-storage/xpx-supercontract-executor/common"

// RemoveTask finalizes a contract cleanly and signals the owning Executor.
type RemoveTask struct {
	ContractKey common.ContractKey
	onDone      func(contractKey common.ContractKey)
}

func NewRemoveTask(contractKey common.ContractKey, onDone func(common.ContractKey)) *RemoveTask {
	return &RemoveTask{ContractKey: contractKey, onDone: onDone}
}

// Run signals completion; remove has no outstanding collaborator queries to
// drain, so it always finishes synchronously.
func (t *RemoveTask) Run() {
	logger.Info("contract removed", "contract", t.ContractKey)
	if t.onDone != nil {
		t.onDone(t.ContractKey)
	}
}
