// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package executor is the top-level multi-contract orchestrator: one
// goroutine per contract drains a single buffered channel of typed events,
// driving that contract's Coordinator. Collaborator clients (gRPC streams,
// the sarama consumer, the dashboard websocket writer) run their own
// goroutines and communicate back only by pushing onto that channel; no
// other goroutine touches Coordinator/Task/Assembly/PoEx state.
package executor

import (
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// EventKind discriminates the typed events a contract's event loop drains.
type EventKind int

const (
	EventBlockPublished EventKind = iota
	EventManualCallSubmitted
	EventEndBatchExecutionPublished
	EventEndBatchSingleTransactionPublished
	EventEndBatchExecutionFailed
	EventStorageSynchronizedPublished
	EventPeerMessage
	EventAutorunProbeResult
	EventRemoveRequested
	EventSynchronizeRequested
	EventShareOpinionTimeout
	EventUnsuccessfulOpinionTimeout
	EventSuccessfulPublishTimeout
	EventUnsuccessfulPublishTimeout
	EventRetryDelayedBatch
	EventRetryInitPoll
)

func (k EventKind) String() string {
	switch k {
	case EventBlockPublished:
		return "BLOCK_PUBLISHED"
	case EventManualCallSubmitted:
		return "MANUAL_CALL_SUBMITTED"
	case EventEndBatchExecutionPublished:
		return "END_BATCH_EXECUTION_PUBLISHED"
	case EventEndBatchSingleTransactionPublished:
		return "END_BATCH_SINGLE_TRANSACTION_PUBLISHED"
	case EventEndBatchExecutionFailed:
		return "END_BATCH_EXECUTION_FAILED"
	case EventStorageSynchronizedPublished:
		return "STORAGE_SYNCHRONIZED_PUBLISHED"
	case EventPeerMessage:
		return "PEER_MESSAGE"
	case EventAutorunProbeResult:
		return "AUTORUN_PROBE_RESULT"
	case EventRemoveRequested:
		return "REMOVE_REQUESTED"
	case EventSynchronizeRequested:
		return "SYNCHRONIZE_REQUESTED"
	case EventShareOpinionTimeout:
		return "SHARE_OPINION_TIMEOUT"
	case EventUnsuccessfulOpinionTimeout:
		return "UNSUCCESSFUL_OPINION_TIMEOUT"
	case EventSuccessfulPublishTimeout:
		return "SUCCESSFUL_PUBLISH_TIMEOUT"
	case EventUnsuccessfulPublishTimeout:
		return "UNSUCCESSFUL_PUBLISH_TIMEOUT"
	case EventRetryDelayedBatch:
		return "RETRY_DELAYED_BATCH"
	case EventRetryInitPoll:
		return "RETRY_INIT_POLL"
	default:
		return "UNKNOWN"
	}
}

// Event is the single typed value drained by a contract's event loop. Only
// the fields relevant to Kind are populated.
type Event struct {
	Kind EventKind

	BlockHeight uint64

	Call model.CallRequest

	Published collaborator.PublishedEndBatchInfo
	Single    collaborator.SingleTransactionInfo
	Failed    collaborator.FailedEndBatchInfo

	Peer    common.ExecutorKey
	Message collaborator.Message

	AutorunHeight     uint64
	AutorunSuccess    bool
	AutorunReturnCode int32

	SynchronizeModID  common.Key32
	SynchronizeTarget common.StorageHash

	// Generation guards stale timers: a timer event is ignored unless it
	// matches the contractRuntime's current generation counter, which bumps
	// every time a new BatchExecutionTask starts.
	Generation uint64
}

// eventAdapter implements collaborator.EventHandler and
// collaborator.MessageSubscriber for exactly one contract, forwarding every
// callback onto that contract's event channel. Concrete Blockchain/Messenger
// clients are expected to scope their subscription to one contract (e.g. a
// server-streaming gRPC call filtered by contract key at the source), so one
// adapter instance per contract is all the routing that is needed; nothing
// in collaborator.PublishedEndBatchInfo carries a contract key to demux on.
type eventAdapter struct {
	events chan<- Event
}

func newEventAdapter(events chan<- Event) *eventAdapter {
	return &eventAdapter{events: events}
}

// send blocks rather than drops: the channel is sized generously (see
// AddContract), and a full channel means the contract's loop is
// wedged, in which case dropping a published-batch or peer-opinion event
// would be worse than the collaborator's delivery goroutine stalling.
func (a *eventAdapter) send(e Event) {
	a.events <- e
}

func (a *eventAdapter) OnBlockPublished(height uint64) bool {
	a.send(Event{Kind: EventBlockPublished, BlockHeight: height})
	return true
}

func (a *eventAdapter) OnEndBatchExecutionPublished(info collaborator.PublishedEndBatchInfo) bool {
	a.send(Event{Kind: EventEndBatchExecutionPublished, Published: info})
	return true
}

func (a *eventAdapter) OnEndBatchExecutionSingleTransactionPublished(info collaborator.SingleTransactionInfo) bool {
	a.send(Event{Kind: EventEndBatchSingleTransactionPublished, Single: info})
	return true
}

func (a *eventAdapter) OnEndBatchExecutionFailed(info collaborator.FailedEndBatchInfo) bool {
	a.send(Event{Kind: EventEndBatchExecutionFailed, Failed: info})
	return true
}

func (a *eventAdapter) OnStorageSynchronizedPublished(batchIndex uint64) bool {
	a.send(Event{Kind: EventStorageSynchronizedPublished, BlockHeight: batchIndex})
	return true
}

func (a *eventAdapter) OnMessage(msg collaborator.Message) {
	a.send(Event{Kind: EventPeerMessage, Peer: msg.Sender, Message: msg})
}
