// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package coordinator_test

import (
	"context"
	"crypto/ed25519"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/proximax-storage/xpx-supercontract-executor/assembly"
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/coordinator"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
	"github.com/proximax-storage/xpx-supercontract-executor/poex"
	"github.com/proximax-storage/xpx-supercontract-executor/task"
)

// fakeStorage is a no-op collaborator.Storage: the reconciliation specs
// below only ever reach ApplyStorageModification.
type fakeStorage struct{ collaborator.Storage }

func (fakeStorage) ApplyStorageModification(ctx context.Context, mod collaborator.StorageModification, success bool) error {
	return nil
}

func seededKey32(b byte) common.Key32 {
	var k common.Key32
	for i := range k {
		k[i] = b
	}
	return k
}

func seededIdentity(seedByte byte) (common.ExecutorKey, ed25519.PrivateKey) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	priv := ed25519.NewKeyFromSeed(seed)
	var pub common.ExecutorKey
	copy(pub[:], priv.Public().(ed25519.PublicKey))
	return pub, priv
}

// buildOpinion runs acc's own accumulator for batchDigest and signs a
// SuccessfulEndBatchOpinion with priv, mirroring what a BatchExecutionTask
// would produce for an honest executor that applied the same batch.
func buildOpinion(acc *poex.Accumulator, executorKey common.ExecutorKey, priv ed25519.PrivateKey, contractKey common.ContractKey, batchIndex uint64, storageHash common.StorageHash, calls []opinion.CallExecutionOpinion, digest uint64) opinion.SuccessfulEndBatchOpinion {
	y := acc.AddToProof(digest)
	o := opinion.SuccessfulEndBatchOpinion{
		ContractKey:                    contractKey,
		BatchIndex:                     batchIndex,
		AutomaticExecutionsCheckedUpTo: 0,
		StorageHash:                    storageHash,
		UsedSize:                       10,
		MetaSize:                       5,
		PoExVerificationInfo:           y,
		CallsExecutionInfo:             calls,
		Proof:                          acc.BuildActualProof(),
		ExecutorKey:                    executorKey,
	}
	o.Sign(priv)
	return o
}

var _ = Describe("ContractCoordinator batch quorum", func() {
	var (
		contractKey common.ContractKey
		storageHash common.StorageHash
		callID      common.CallId

		localKey, peerKey   common.ExecutorKey
		localPriv, peerPriv ed25519.PrivateKey
		localAcc, peerAcc   *poex.Accumulator

		coord *coordinator.ContractCoordinator
		calls []opinion.CallExecutionOpinion
	)

	BeforeEach(func() {
		contractKey = seededKey32(0x11)
		storageHash = seededKey32(0x22)
		callID = seededKey32(0x33)

		localKey, localPriv = seededIdentity(0x01)
		peerKey, peerPriv = seededIdentity(0x02)

		localAcc = poex.New(seededKey32(0x01), localKey, 0, 16)
		peerAcc = poex.New(seededKey32(0x02), peerKey, 0, 16)

		asm := assembly.NewAssembler(contractKey, 0, "autorun.wasm", "run", 1000)
		coord = coordinator.New(contractKey, 2, asm, localAcc)
		coord.Directory.Set(peerKey, poex.NewDirectoryEntry(0, 0))

		calls = []opinion.CallExecutionOpinion{{CallId: callID, IsManual: true, Status: 0}}

		bt := &task.BatchExecutionTask{Batch: model.Batch{BatchIndex: 0}}
		coord.StartNextBatchTask(bt)

		local := buildOpinion(localAcc, localKey, localPriv, contractKey, 0, storageHash, calls, 7)
		coord.Quorum.SetLocalSuccessful(local)
	})

	It("reaches quorum once a matching peer opinion with a valid PoEx proof arrives", func() {
		declared := []opinion.DeclaredPayments{{ExecutionPayment: 100, DownloadPayment: 100}}
		peer := buildOpinion(peerAcc, peerKey, peerPriv, contractKey, 0, storageHash, calls, 7)

		coord.OnPeerSuccessfulOpinion(peerKey, peer, declared)

		Expect(coord.Quorum.SuccessfulQuorumReached(2)).To(BeTrue())
		Expect(coord.Quorum.SuccessfulPeers()).To(HaveLen(1))
	})

	It("rejects a peer opinion whose storage hash disagrees with the local one", func() {
		declared := []opinion.DeclaredPayments{{ExecutionPayment: 100, DownloadPayment: 100}}
		mismatchedHash := seededKey32(0x99)
		peer := buildOpinion(peerAcc, peerKey, peerPriv, contractKey, 0, mismatchedHash, calls, 7)

		coord.OnPeerSuccessfulOpinion(peerKey, peer, declared)

		Expect(coord.Quorum.SuccessfulQuorumReached(2)).To(BeFalse())
	})

	It("buffers an opinion for a batch index the active task has not reached yet", func() {
		declared := []opinion.DeclaredPayments{{ExecutionPayment: 100, DownloadPayment: 100}}
		peer := buildOpinion(peerAcc, peerKey, peerPriv, contractKey, 1, storageHash, calls, 7)

		coord.OnPeerSuccessfulOpinion(peerKey, peer, declared)

		Expect(coord.Quorum.SuccessfulQuorumReached(2)).To(BeFalse())
	})

	It("S5: replays a buffered opinion synchronously once its batch's task starts, with no re-request", func() {
		declared := []opinion.DeclaredPayments{{ExecutionPayment: 100, DownloadPayment: 100}}
		peer := buildOpinion(peerAcc, peerKey, peerPriv, contractKey, 1, storageHash, calls, 9)
		coord.OnPeerSuccessfulOpinion(peerKey, peer, declared)
		Expect(coord.Quorum.SuccessfulQuorumReached(2)).To(BeFalse())

		nextBatch := &task.BatchExecutionTask{Batch: model.Batch{BatchIndex: 1}}
		coord.StartNextBatchTask(nextBatch)
		local := buildOpinion(localAcc, localKey, localPriv, contractKey, 1, storageHash, calls, 9)
		coord.Quorum.SetLocalSuccessful(local)

		Expect(coord.Quorum.SuccessfulQuorumReached(2)).To(BeTrue())
		Expect(coord.Quorum.SuccessfulPeers()).To(HaveLen(1))
	})
})

var _ = Describe("ContractCoordinator publish reconciliation", func() {
	var (
		contractKey common.ContractKey
		storageHash common.StorageHash

		localKey, peerKey common.ExecutorKey
		localPriv         ed25519.PrivateKey
		localAcc          *poex.Accumulator

		coord *coordinator.ContractCoordinator
	)

	BeforeEach(func() {
		contractKey = seededKey32(0x55)
		storageHash = seededKey32(0x66)

		localKey, localPriv = seededIdentity(0x03)
		peerKey, _ = seededIdentity(0x04)

		localAcc = poex.New(seededKey32(0x03), localKey, 0, 16)

		asm := assembly.NewAssembler(contractKey, 0, "autorun.wasm", "run", 1000)
		coord = coordinator.New(contractKey, 2, asm, localAcc)
		coord.Directory.Set(peerKey, poex.NewDirectoryEntry(0, 0))

		bt := &task.BatchExecutionTask{
			ContractKey: contractKey,
			ExecutorKey: localKey,
			PrivateKey:  localPriv,
			Storage:     fakeStorage{},
			PoEx:        localAcc,
			Batch:       model.Batch{BatchIndex: 0},
		}
		coord.StartNextBatchTask(bt)

		calls := []opinion.CallExecutionOpinion{{CallId: seededKey32(0x77), IsManual: true}}
		local := buildOpinion(localAcc, localKey, localPriv, contractKey, 0, storageHash, calls, 11)
		coord.Quorum.SetLocalSuccessful(local)
	})

	It("S2: reports a mismatch and finishes the batch task when the published drive state disagrees with the local opinion", func() {
		info := collaborator.PublishedEndBatchInfo{
			BatchIndex:           0,
			BatchSuccess:         true,
			DriveState:           seededKey32(0x99),
			PoExVerificationInfo: opinion.EncodePoint(coord.Quorum.LocalSuccessful().PoExVerificationInfo),
			Cosigners:            []common.ExecutorKey{localKey, peerKey},
		}

		_, _, err := coord.OnEndBatchExecutionPublished(context.Background(), info, localKey, poex.BatchProof{})

		Expect(coordinator.IsMismatch(err)).To(BeTrue())
		_, active := coord.ActiveBatchIndex()
		Expect(active).To(BeFalse())
	})

	It("S8: emits a standalone single-signature transaction when absent from a successfully published batch's cosigners", func() {
		info := collaborator.PublishedEndBatchInfo{
			BatchIndex:           0,
			BatchSuccess:         true,
			DriveState:           storageHash,
			PoExVerificationInfo: opinion.EncodePoint(coord.Quorum.LocalSuccessful().PoExVerificationInfo),
			Cosigners:            []common.ExecutorKey{peerKey},
		}

		single, emit, err := coord.OnEndBatchExecutionPublished(context.Background(), info, localKey, poex.BatchProof{})

		Expect(err).NotTo(HaveOccurred())
		Expect(emit).To(BeTrue())
		Expect(single.ExecutorKey).To(Equal(localKey))
		Expect(single.BatchIndex).To(Equal(uint64(0)))
	})
})

var _ = Describe("ContractCoordinator unsuccessful quorum", func() {
	It("S3: reaches an unsuccessful quorum once a matching peer opinion arrives", func() {
		contractKey := seededKey32(0x88)
		localKey, localPriv := seededIdentity(0x05)
		peerKey, peerPriv := seededIdentity(0x06)

		localAcc := poex.New(seededKey32(0x05), localKey, 0, 16)
		peerAcc := poex.New(seededKey32(0x06), peerKey, 0, 16)

		asm := assembly.NewAssembler(contractKey, 0, "autorun.wasm", "run", 1000)
		coord := coordinator.New(contractKey, 2, asm, localAcc)
		coord.Directory.Set(peerKey, poex.NewDirectoryEntry(0, 0))

		calls := []opinion.CallExecutionOpinion{{CallId: seededKey32(0x77), IsManual: true}}

		localTask := &task.BatchExecutionTask{ContractKey: contractKey, ExecutorKey: localKey, PrivateKey: localPriv, PoEx: localAcc, Batch: model.Batch{BatchIndex: 0}}
		coord.StartNextBatchTask(localTask)
		local := localTask.FormUnsuccessfulOpinion(calls)
		coord.Quorum.SetLocalUnsuccessful(local)

		peerTask := &task.BatchExecutionTask{ContractKey: contractKey, ExecutorKey: peerKey, PrivateKey: peerPriv, PoEx: peerAcc, Batch: model.Batch{BatchIndex: 0}}
		peer := peerTask.FormUnsuccessfulOpinion(calls)

		coord.OnPeerUnsuccessfulOpinion(peerKey, peer)

		Expect(coord.Quorum.UnsuccessfulQuorumReached(2)).To(BeTrue())
		Expect(coord.Quorum.UnsuccessfulPeers()).To(HaveLen(1))
	})
})

var _ = Describe("ContractCoordinator task succession", func() {
	It("prioritizes Remove over Synchronize over BatchExecution", func() {
		contractKey := seededKey32(0x44)
		asm := assembly.NewAssembler(contractKey, 0, "autorun.wasm", "run", 1000)
		acc := poex.New(seededKey32(0x01), seededKey32(0x02), 0, 16)
		coord := coordinator.New(contractKey, 1, asm, acc)

		Expect(coord.NextTaskKind()).To(Equal(coordinator.ActiveNone))

		coord.RequestSynchronize(seededKey32(0x55), seededKey32(0x66))
		Expect(coord.NextTaskKind()).To(Equal(coordinator.ActiveSynchronize))

		coord.RequestRemove()
		Expect(coord.NextTaskKind()).To(Equal(coordinator.ActiveRemove))
		Expect(coord.RemovePending()).To(BeTrue())

		modID, target, pending := coord.SynchronizeTarget()
		Expect(pending).To(BeTrue())
		Expect(modID).To(Equal(seededKey32(0x55)))
		Expect(target).To(Equal(seededKey32(0x66)))

		coord.ClearSynchronizeRequest()
		_, _, pending = coord.SynchronizeTarget()
		Expect(pending).To(BeFalse())
	})
})
