// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package executor

import (
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/aristanetworks/goarista/monotime"

	"github.com/proximax-storage/xpx-supercontract-executor/assembly"
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/config"
	"github.com/proximax-storage/xpx-supercontract-executor/coordinator"
	"github.com/proximax-storage/xpx-supercontract-executor/dedup"
	"github.com/proximax-storage/xpx-supercontract-executor/internal/log"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
	"github.com/proximax-storage/xpx-supercontract-executor/task"
)

var logger = log.NewModuleLogger(log.ModuleExecutor)

// ContractIdentity is the set of long-lived identifiers and collaborator
// bindings an Executor needs to attach to one contract.
type ContractIdentity struct {
	ContractKey common.ContractKey
	DriveKey    common.DriveKey
	ExecutorKey common.ExecutorKey
	PrivateKey  ed25519.PrivateKey

	// Peers lists every other committee member's key, seeding the contract's
	// directory so the first few batches' peer opinions can be validated
	// against a known PoEx starting point.
	Peers []common.ExecutorKey

	ContractDeploymentBaseModificationID common.Key32
	HasHistoricalBatches                 bool
	InitialBatchIndex                    uint64

	Storage    collaborator.Storage
	VM         collaborator.VirtualMachine
	Messenger  collaborator.Messenger
	Blockchain collaborator.Blockchain
}

// Executor is the top-level multi-contract orchestrator: it owns one
// contractRuntime (and goroutine) per attached contract, plus the shared
// configuration, persistence, dedup, metrics and dashboard infrastructure
// every contract draws from.
type Executor struct {
	cfg   *config.ExecutorConfig
	store *localstore.Store
	dedup *dedup.Seen

	metrics   *Metrics
	dashboard *Dashboard

	mu        sync.Mutex
	contracts map[common.ContractKey]*contractRuntime
}

// NewExecutor wires the shared infrastructure every contractRuntime draws
// from. cfg, store, dedup, metrics and dashboard are all expected to
// already be constructed (by cmd/executor's entrypoint) since they are
// process-wide, not per-contract.
func NewExecutor(cfg *config.ExecutorConfig, store *localstore.Store, dedup *dedup.Seen, metrics *Metrics, dashboard *Dashboard) *Executor {
	return &Executor{
		cfg:       cfg,
		store:     store,
		dedup:     dedup,
		metrics:   metrics,
		dashboard: dashboard,
		contracts: make(map[common.ContractKey]*contractRuntime),
	}
}

// AddContract attaches a new contract and starts its event loop goroutine.
func (e *Executor) AddContract(id ContractIdentity) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.contracts[id.ContractKey]; exists {
		return
	}

	params := e.cfg.GetConfigByHeight(0)
	asm := assembly.NewAssembler(id.ContractKey, id.InitialBatchIndex, params.AutorunFile, params.AutorunFunction, params.AutorunGasLimit)
	acc := poex.New(privateKeySeed(id.PrivateKey), id.ExecutorKey, id.InitialBatchIndex, params.MaxBatchesHistorySize)
	coord := coordinator.New(id.ContractKey, len(id.Peers)+1, asm, acc)

	if err := coord.RestoreFromStore(e.store, id.ContractKey[:]); err != nil {
		logger.Error("restoring checkpointed state failed, starting from scratch", "contract", id.ContractKey, "err", err)
	}
	for _, peer := range id.Peers {
		if _, known := coord.Directory.Get(peer); !known {
			coord.Directory.Set(peer, poex.NewDirectoryEntry(id.InitialBatchIndex, id.InitialBatchIndex))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt := &contractRuntime{
		exec:        e,
		key:         id.ContractKey,
		driveKey:    id.DriveKey,
		executorKey: id.ExecutorKey,
		privateKey:  id.PrivateKey,
		hasHistory:  id.HasHistoricalBatches,
		deployModID: id.ContractDeploymentBaseModificationID,

		asm:   asm,
		coord: coord,

		storage:    id.Storage,
		vm:         id.VM,
		messenger:  id.Messenger,
		blockchain: id.Blockchain,

		metrics:   e.metrics,
		dashboard: e.dashboard,

		events: make(chan Event, 256),
		ctx:    ctx,
		cancel: cancel,
	}

	adapter := newEventAdapter(rt.events)
	rt.blockchain.Subscribe(adapter)
	rt.messenger.Subscribe(adapter)

	e.contracts[id.ContractKey] = rt
	go rt.loop()
}

// RemoveContract requests that a contract be retired; the actual teardown
// happens asynchronously, at the contract's next task-succession point.
func (e *Executor) RemoveContract(key common.ContractKey) {
	e.mu.Lock()
	rt, ok := e.contracts[key]
	e.mu.Unlock()
	if !ok {
		return
	}
	rt.submit(Event{Kind: EventRemoveRequested})
}

// SubmitManualCall hands a caller-submitted call into a contract's batch
// assembly, or does nothing if the contract is not attached.
func (e *Executor) SubmitManualCall(key common.ContractKey, call model.CallRequest) {
	e.mu.Lock()
	rt, ok := e.contracts[key]
	e.mu.Unlock()
	if !ok {
		return
	}
	rt.submit(Event{Kind: EventManualCallSubmitted, Call: call})
}

// Shutdown cancels every attached contract's event loop and waits for them
// to drain.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	contracts := make([]*contractRuntime, 0, len(e.contracts))
	for _, rt := range e.contracts {
		contracts = append(contracts, rt)
	}
	e.mu.Unlock()

	for _, rt := range contracts {
		rt.cancel()
	}
	for _, rt := range contracts {
		<-rt.done
	}
}

func (e *Executor) detach(key common.ContractKey) {
	e.mu.Lock()
	delete(e.contracts, key)
	e.mu.Unlock()
}

func privateKeySeed(priv ed25519.PrivateKey) common.Key32 {
	var seed common.Key32
	copy(seed[:], priv.Seed())
	return seed
}

// contractRuntime is the single goroutine driving one contract's Contract
// Coordinator. Every field below is touched only from loop() and the
// functions it calls directly: no locking is needed.
type contractRuntime struct {
	exec *Executor

	key         common.ContractKey
	driveKey    common.DriveKey
	executorKey common.ExecutorKey
	privateKey  ed25519.PrivateKey
	hasHistory  bool
	deployModID common.Key32

	asm   *assembly.Assembler
	coord *coordinator.ContractCoordinator

	storage    collaborator.Storage
	vm         collaborator.VirtualMachine
	messenger  collaborator.Messenger
	blockchain collaborator.Blockchain

	metrics   *Metrics
	dashboard *Dashboard

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// generation bumps every time a new BatchExecutionTask starts; timer
	// events carry the generation they were armed for and are ignored if it
	// has since moved on.
	generation uint64
	declared   []opinion.DeclaredPayments
	params     config.ContractParams

	successfulTimerArmed   bool
	unsuccessfulTimerArmed bool
}

func (r *contractRuntime) submit(ev Event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

func (r *contractRuntime) label() string { return contractLabel(r.key) }

func (r *contractRuntime) loop() {
	r.done = make(chan struct{})
	defer close(r.done)
	defer r.exec.detach(r.key)

	if !r.bootstrap() {
		return
	}

	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
			r.maybeAdvance()
		case <-r.ctx.Done():
			return
		}
	}
}

// bootstrap runs the Init Task to completion (or until the contract is
// cancelled), draining ordinary events along the way so manual calls and
// block notifications arriving during a long resync are not lost.
func (r *contractRuntime) bootstrap() bool {
	it := &task.InitTask{
		ContractKey:                           r.key,
		DriveKey:                              r.driveKey,
		ContractDeploymentBaseModificationID: r.deployModID,
		HasHistoricalBatches:                  r.hasHistory,
		Storage:                               r.storage,
	}

	params := r.exec.cfg.GetConfigByHeight(0)

	for {
		outcome, err := it.Poll(r.ctx)
		if err != nil && !collaborator.IsUnavailable(err) {
			logger.Error("init task poll failed", "contract", r.key, "err", err)
		}

		switch outcome {
		case task.InitReady:
			return true
		case task.InitNeedsSynchronize:
			return r.waitForFirstPublished()
		default: // InitPending
			select {
			case <-time.After(params.ServiceUnavailableTimeout):
			case ev := <-r.events:
				r.handle(ev)
			case <-r.ctx.Done():
				return false
			}
		}
	}
}

// waitForFirstPublished drains events until the first
// EndBatchExecutionPublished arrives, which carries the target storage
// state a Synchronize Task needs; it then seeds that request and returns.
func (r *contractRuntime) waitForFirstPublished() bool {
	for {
		select {
		case ev := <-r.events:
			if ev.Kind == EventEndBatchExecutionPublished {
				modID := task.ModificationID(r.key, ev.Published.BatchIndex)
				r.coord.RequestSynchronize(modID, ev.Published.DriveState)
				r.asm.SkipBatches(ev.Published.BatchIndex + 1)
				return true
			}
			r.handle(ev)
		case <-r.ctx.Done():
			return false
		}
	}
}

func (r *contractRuntime) maybeAdvance() {
	if r.coord.Active != coordinator.ActiveNone {
		return
	}

	switch r.coord.NextTaskKind() {
	case coordinator.ActiveRemove:
		r.runRemove()
	case coordinator.ActiveSynchronize:
		r.runSynchronize()
	case coordinator.ActiveBatchExecution:
		r.runBatch()
	}
}

func (r *contractRuntime) handle(ev Event) {
	switch ev.Kind {
	case EventManualCallSubmitted:
		r.asm.AddManualCall(ev.Call)

	case EventBlockPublished:
		r.asm.FixUnmodifiable(ev.BlockHeight)
		if probe, ok := r.asm.AddBlock(ev.BlockHeight); ok {
			r.runAutorunProbe(r.ctx, probe.Height, probe.CallId, probe.File, probe.Function, probe.GasLimit)
		}

	case EventAutorunProbeResult:
		r.asm.CompleteAutorunProbe(ev.AutorunHeight, ev.AutorunSuccess, ev.AutorunReturnCode)

	case EventPeerMessage:
		r.handlePeerMessage(ev.Message)

	case EventEndBatchExecutionPublished:
		r.handlePublished(ev.Published)

	case EventEndBatchExecutionFailed:
		logger.Warn("end batch transaction failed on-chain", "contract", r.key, "batch", ev.Failed.BatchIndex)
		if r.coord.Quorum != nil {
			r.coord.Quorum.ClearSent()
		}

	case EventRemoveRequested:
		r.coord.RequestRemove()

	case EventSynchronizeRequested:
		r.coord.RequestSynchronize(ev.SynchronizeModID, ev.SynchronizeTarget)

	case EventShareOpinionTimeout:
		if ev.Generation == r.generation {
			r.reshareOpinions()
			r.armShareOpinionTimer()
		}

	case EventUnsuccessfulOpinionTimeout:
		if ev.Generation == r.generation {
			r.onUnsuccessfulTimeout()
		}

	case EventSuccessfulPublishTimeout:
		if ev.Generation == r.generation {
			r.emitSuccessfulMultisig()
		}

	case EventUnsuccessfulPublishTimeout:
		if ev.Generation == r.generation {
			r.emitUnsuccessfulMultisig()
		}

	case EventEndBatchSingleTransactionPublished, EventStorageSynchronizedPublished, EventRetryDelayedBatch, EventRetryInitPoll:
		// Informational, or merely a wakeup to re-enter maybeAdvance(); no
		// state change of their own.
	}
}

func (r *contractRuntime) armTimer(d time.Duration, ev Event) {
	time.AfterFunc(d, func() { r.submit(ev) })
}

func (r *contractRuntime) armShareOpinionTimer() {
	r.armTimer(r.params.ShareOpinionTimeout, Event{Kind: EventShareOpinionTimeout, Generation: r.generation})
}

func (r *contractRuntime) reshareOpinions() {
	if r.coord.Quorum == nil {
		return
	}
	if r.coord.Quorum.HasLocalSuccessful() {
		r.broadcast(collaborator.SuccessfulEndBatch, opinion.EncodeSuccessful(r.coord.Quorum.LocalSuccessful()))
	}
	if r.coord.Quorum.HasLocalUnsuccessful() {
		r.broadcast(collaborator.UnsuccessfulEndBatch, opinion.EncodeUnsuccessful(r.coord.Quorum.LocalUnsuccessful()))
	}
}

func (r *contractRuntime) broadcast(tag collaborator.MessageTag, content []byte) {
	for _, peer := range r.coord.Directory.Keys() {
		if err := r.messenger.SendMessage(peer, tag, content); err != nil {
			logger.Warn("send to peer failed", "contract", r.key, "peer", peer, "err", err)
		}
	}
}

// runBatch pulls the next batch from Assembly and drives it through the
// BatchExecutionTask pipeline to opinion formation.
func (r *contractRuntime) runBatch() {
	batch, ok := r.asm.NextBatch()
	if !ok {
		return
	}

	params := r.exec.cfg.GetConfigByHeight(batch.BlockHeightUpperBound)
	r.params = params

	bt := &task.BatchExecutionTask{
		ContractKey: r.key,
		DriveKey:    r.driveKey,
		ExecutorKey: r.executorKey,
		PrivateKey:  r.privateKey,
		Batch:       batch,
		Params:      params,
		Storage:     r.storage,
		VM:          r.vm,
		PoEx:        r.coord.PoEx,
	}

	r.coord.StartNextBatchTask(bt)
	r.generation++
	r.successfulTimerArmed = false
	r.unsuccessfulTimerArmed = false
	r.metrics.BatchesStarted.WithLabelValues(r.label()).Inc()
	r.metrics.ActiveTask.WithLabelValues(r.label()).Set(3)
	r.metrics.QuorumSize.WithLabelValues(r.label()).Set(float64(r.coord.NumPeers))

	r.declared = make([]opinion.DeclaredPayments, len(batch.Calls))
	for i, c := range batch.Calls {
		r.declared[i] = opinion.DeclaredPayments{ExecutionPayment: c.ExecutionPayment, DownloadPayment: c.DownloadPayment}
	}

	start := monotime.Now()
	local, err := bt.Execute(r.ctx)
	if err != nil {
		r.abortBatch(batch, err)
		return
	}
	r.metrics.BatchExecutionSeconds.WithLabelValues(r.label()).Observe(time.Duration(monotime.Now() - start).Seconds())

	r.coord.Quorum.SetLocalSuccessful(local)
	r.broadcast(collaborator.SuccessfulEndBatch, opinion.EncodeSuccessful(local))
	r.armShareOpinionTimer()
	r.armTimer(params.UnsuccessfulApprovalDelay, Event{Kind: EventUnsuccessfulOpinionTimeout, Generation: r.generation})
	r.checkSuccessfulQuorum()

	r.dashboard.Broadcast(DashboardEvent{Contract: r.label(), Kind: "OPINION_FORMED", Batch: batch.BatchIndex})
}

// abortBatch hands a batch whose execution failed mid-pipeline back to
// Assembly for a later retry, releasing the active task so maybeAdvance can
// reconsider the Remove/Synchronize/BatchExecution succession in the
// meantime.
func (r *contractRuntime) abortBatch(batch model.Batch, err error) {
	logger.Warn("batch execution aborted", "contract", r.key, "batch", batch.BatchIndex, "err", err)
	r.asm.DelayBatch(batch)
	r.coord.AbortActiveBatch()
	r.metrics.ActiveTask.WithLabelValues(r.label()).Set(0)
	r.armTimer(r.params.ServiceUnavailableTimeout, Event{Kind: EventRetryDelayedBatch})
}

func (r *contractRuntime) checkSuccessfulQuorum() {
	if r.successfulTimerArmed || r.coord.Quorum == nil {
		return
	}
	if !r.coord.Quorum.SuccessfulQuorumReached(r.coord.NumPeers) {
		return
	}
	r.successfulTimerArmed = true
	r.armTimer(r.params.SuccessfulExecutionDelay, Event{Kind: EventSuccessfulPublishTimeout, Generation: r.generation})
}

func (r *contractRuntime) checkUnsuccessfulQuorum() {
	if r.unsuccessfulTimerArmed || r.coord.Quorum == nil || !r.coord.Quorum.HasLocalUnsuccessful() {
		return
	}
	if !r.coord.Quorum.UnsuccessfulQuorumReached(r.coord.NumPeers) {
		return
	}
	r.unsuccessfulTimerArmed = true
	r.armTimer(r.params.UnsuccessfulExecutionDelay, Event{Kind: EventUnsuccessfulPublishTimeout, Generation: r.generation})
}

func (r *contractRuntime) onUnsuccessfulTimeout() {
	if r.coord.Active != coordinator.ActiveBatchExecution || r.coord.Quorum == nil {
		return
	}
	if r.coord.Quorum.IsSent() || r.coord.Quorum.HasLocalUnsuccessful() {
		return
	}

	calls := r.coord.Quorum.LocalSuccessful().CallsExecutionInfo
	unsucc := r.coord.BatchTask.FormUnsuccessfulOpinion(calls)
	r.coord.Quorum.SetLocalUnsuccessful(unsucc)
	r.broadcast(collaborator.UnsuccessfulEndBatch, opinion.EncodeUnsuccessful(unsucc))
	r.checkUnsuccessfulQuorum()
}

func (r *contractRuntime) emitSuccessfulMultisig() {
	if r.coord.Active != coordinator.ActiveBatchExecution || r.coord.Quorum == nil || r.coord.Quorum.IsSent() {
		return
	}
	info := opinion.AssembleSuccessfulMultisig(r.coord.Quorum.LocalSuccessful(), r.coord.Quorum.SuccessfulPeers())
	if err := r.blockchain.EndBatchTransactionIsReady(r.ctx, info); err != nil {
		logger.Error("end batch transaction publish failed", "contract", r.key, "batch", info.BatchIndex, "err", err)
		return
	}
	r.coord.Quorum.MarkSent()
}

func (r *contractRuntime) emitUnsuccessfulMultisig() {
	if r.coord.Active != coordinator.ActiveBatchExecution || r.coord.Quorum == nil || r.coord.Quorum.IsSent() || !r.coord.Quorum.HasLocalUnsuccessful() {
		return
	}
	info := opinion.AssembleUnsuccessfulMultisig(r.coord.Quorum.LocalUnsuccessful(), r.coord.Quorum.UnsuccessfulPeers())
	if err := r.blockchain.EndBatchTransactionIsReady(r.ctx, info); err != nil {
		logger.Error("end batch transaction publish failed", "contract", r.key, "batch", info.BatchIndex, "err", err)
		return
	}
	r.coord.Quorum.MarkSent()
}

func (r *contractRuntime) handlePeerMessage(msg collaborator.Message) {
	key := dedup.KeyOf(msg.Sender[:], []byte{byte(msg.Tag)}, msg.Content)
	if r.exec.dedup.CheckAndMark(key) {
		return
	}

	r.metrics.OpinionsReceived.WithLabelValues(r.label()).Inc()

	switch msg.Tag {
	case collaborator.SuccessfulEndBatch:
		o, err := opinion.DecodeSuccessful(msg.Content)
		if err != nil {
			r.metrics.OpinionsRejected.WithLabelValues(r.label(), "malformed").Inc()
			logger.Warn("malformed successful opinion", "contract", r.key, "peer", msg.Sender, "err", err)
			return
		}
		r.coord.OnPeerSuccessfulOpinion(msg.Sender, o, r.declared)
		r.checkSuccessfulQuorum()

	case collaborator.UnsuccessfulEndBatch:
		o, err := opinion.DecodeUnsuccessful(msg.Content)
		if err != nil {
			r.metrics.OpinionsRejected.WithLabelValues(r.label(), "malformed").Inc()
			logger.Warn("malformed unsuccessful opinion", "contract", r.key, "peer", msg.Sender, "err", err)
			return
		}
		r.coord.OnPeerUnsuccessfulOpinion(msg.Sender, o)
		r.checkUnsuccessfulQuorum()
	}
}

func (r *contractRuntime) handlePublished(info collaborator.PublishedEndBatchInfo) {
	bt := r.coord.BatchTask
	var localProof poex.BatchProof
	if r.coord.Quorum != nil && r.coord.Quorum.HasLocalSuccessful() {
		localProof = r.coord.Quorum.LocalSuccessful().Proof.Batch
	}

	single, emit, err := r.coord.OnEndBatchExecutionPublished(r.ctx, info, r.executorKey, localProof)
	if err != nil {
		if coordinator.IsMismatch(err) {
			r.metrics.BatchesMismatched.WithLabelValues(r.label()).Inc()
			modID := task.ModificationID(r.key, info.BatchIndex)
			r.coord.RequestSynchronize(modID, info.DriveState)
		} else {
			logger.Error("publication reconciliation failed", "contract", r.key, "batch", info.BatchIndex, "err", err)
		}
		r.metrics.ActiveTask.WithLabelValues(r.label()).Set(0)
		return
	}

	if info.BatchSuccess {
		r.metrics.BatchesSucceeded.WithLabelValues(r.label()).Inc()
		r.coord.PoEx.AddBatchVerificationInformation(info.BatchIndex, poex.DecodePointBytes(info.PoExVerificationInfo[:]))
		if bt != nil && len(bt.ReleasedTransactions) > 0 {
			payloads := make([][]byte, 0, len(bt.ReleasedTransactions))
			for _, tx := range bt.ReleasedTransactions {
				payloads = append(payloads, tx.Payload)
			}
			if err := r.blockchain.ReleasedTransactionsAreReady(r.ctx, r.key, info.BatchIndex, payloads); err != nil {
				logger.Error("released transaction broadcast failed", "contract", r.key, "batch", info.BatchIndex, "err", err)
			}
		}
	}

	if emit {
		if err := r.blockchain.EndBatchSingleTransactionIsReady(r.ctx, single); err != nil {
			logger.Error("single transaction publish failed", "contract", r.key, "batch", info.BatchIndex, "err", err)
		}
	}

	r.metrics.ActiveTask.WithLabelValues(r.label()).Set(0)
	r.dashboard.Broadcast(DashboardEvent{Contract: r.label(), Kind: "BATCH_PUBLISHED", Batch: info.BatchIndex})
}

func (r *contractRuntime) runSynchronize() {
	modID, target, pending := r.coord.SynchronizeTarget()
	if !pending {
		return
	}

	r.coord.Active = coordinator.ActiveSynchronize
	r.metrics.ActiveTask.WithLabelValues(r.label()).Set(2)

	nextBatchIndex, ok := r.coord.ActiveBatchIndex()
	if !ok {
		nextBatchIndex = r.asm.MinBatchIndex()
	}

	st := &task.SynchronizeTask{
		ContractKey:    r.key,
		DriveKey:       r.driveKey,
		ExecutorKey:    r.executorKey,
		PrivateKey:     r.privateKey,
		ModificationID: modID,
		TargetHash:     target,
		NextBatchIndex: nextBatchIndex,
		Storage:        r.storage,
		PoEx:           r.coord.PoEx,
	}

	peerOpinion, err := st.Run(r.ctx)
	if err != nil {
		r.coord.Active = coordinator.ActiveNone
		r.armTimer(r.exec.cfg.GetConfigByHeight(0).ServiceUnavailableTimeout, Event{Kind: EventRetryDelayedBatch})
		return
	}

	r.asm.SkipBatches(nextBatchIndex)
	r.coord.ClearSynchronizeRequest()
	r.coord.Active = coordinator.ActiveNone

	single := opinion.SingleTransaction(r.key, nextBatchIndex, r.executorKey, peerOpinion.Signature, peerOpinion.Proof)
	if err := r.blockchain.SynchronizationSingleTransactionIsReady(r.ctx, single); err != nil {
		logger.Error("synchronize single transaction publish failed", "contract", r.key, "batch", nextBatchIndex, "err", err)
	}

	r.metrics.ActiveTask.WithLabelValues(r.label()).Set(0)
	r.dashboard.Broadcast(DashboardEvent{Contract: r.label(), Kind: "SYNCHRONIZED", Batch: nextBatchIndex})
}

func (r *contractRuntime) runRemove() {
	r.coord.Active = coordinator.ActiveRemove
	r.metrics.ActiveTask.WithLabelValues(r.label()).Set(4)

	rt := task.NewRemoveTask(r.key, func(common.ContractKey) {})
	rt.Run()

	r.dashboard.Broadcast(DashboardEvent{Contract: r.label(), Kind: "REMOVED"})
	r.cancel()
}
