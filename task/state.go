// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package task implements the Batch Execution Task and its auxiliary
// variants: Init, Synchronize, and Remove.
package task

// State is one phase of a BatchExecutionTask's lifecycle.
type State int

const (
	StateInit State = iota
	StateSandboxing
	StateExecutingCalls
	StateHashing
	StateOpinionExchange
	StatePublishedOK
	StatePublishedFail
	StatePublishedMismatch
	StateDone
	StateAbort
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSandboxing:
		return "SANDBOXING"
	case StateExecutingCalls:
		return "EXECUTING_CALLS"
	case StateHashing:
		return "HASHING"
	case StateOpinionExchange:
		return "OPINION_EXCHANGE"
	case StatePublishedOK:
		return "PUBLISHED_OK"
	case StatePublishedFail:
		return "PUBLISHED_FAIL"
	case StatePublishedMismatch:
		return "PUBLISHED_MISMATCH"
	case StateDone:
		return "DONE"
	case StateAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}
