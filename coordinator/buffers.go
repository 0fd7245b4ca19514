// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package coordinator

import (
	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
	"github.com/proximax-storage/xpx-supercontract-executor/opinion"
)

// peerOpinions holds opinions keyed by batch index, then peer, preserving
// arrival order within each batch via arrivalOrder.
type peerOpinions[T any] struct {
	byBatch      map[uint64]map[common.ExecutorKey]T
	arrivalOrder map[uint64][]common.ExecutorKey
}

func newPeerOpinions[T any]() *peerOpinions[T] {
	return &peerOpinions[T]{
		byBatch:      make(map[uint64]map[common.ExecutorKey]T),
		arrivalOrder: make(map[uint64][]common.ExecutorKey),
	}
}

func (p *peerOpinions[T]) Add(batchIndex uint64, peer common.ExecutorKey, opinion T) {
	byPeer, ok := p.byBatch[batchIndex]
	if !ok {
		byPeer = make(map[common.ExecutorKey]T)
		p.byBatch[batchIndex] = byPeer
	}
	if _, exists := byPeer[peer]; !exists {
		p.arrivalOrder[batchIndex] = append(p.arrivalOrder[batchIndex], peer)
	}
	byPeer[peer] = opinion
}

// Take removes and returns, in arrival order, every buffered opinion for
// batchIndex, for synchronous replay into a freshly started task.
func (p *peerOpinions[T]) Take(batchIndex uint64) []T {
	order := p.arrivalOrder[batchIndex]
	byPeer := p.byBatch[batchIndex]
	out := make([]T, 0, len(order))
	for _, peer := range order {
		out = append(out, byPeer[peer])
	}
	delete(p.arrivalOrder, batchIndex)
	delete(p.byBatch, batchIndex)
	return out
}

// evictedOpinion names one (batch, peer) pair dropped by EvictBelow, so the
// caller can also clear its local-store checkpoint.
type evictedOpinion struct {
	BatchIndex uint64
	Peer       common.ExecutorKey
}

// EvictBelow drops every buffered batch index strictly below min, matching
// the assembler's current MinBatchIndex, and reports what was dropped.
func (p *peerOpinions[T]) EvictBelow(min uint64) []evictedOpinion {
	var out []evictedOpinion
	for idx := range p.byBatch {
		if idx < min {
			for _, peer := range p.arrivalOrder[idx] {
				out = append(out, evictedOpinion{BatchIndex: idx, Peer: peer})
			}
			delete(p.byBatch, idx)
			delete(p.arrivalOrder, idx)
		}
	}
	return out
}

// Buffers holds the three Coordinator-level buffers: opinions and
// publication info that arrive before the batch they describe is active.
// Every mutation is mirrored to the local store (when attached) so a
// restarted process can replay exactly what was buffered.
type Buffers struct {
	Successful   *peerOpinions[opinion.SuccessfulEndBatchOpinion]
	Unsuccessful *peerOpinions[opinion.UnsuccessfulEndBatchOpinion]
	Publications map[uint64]collaborator.PublishedEndBatchInfo

	store       *localstore.Store
	contractKey []byte
}

func NewBuffers() *Buffers {
	return &Buffers{
		Successful:   newPeerOpinions[opinion.SuccessfulEndBatchOpinion](),
		Unsuccessful: newPeerOpinions[opinion.UnsuccessfulEndBatchOpinion](),
		Publications: make(map[uint64]collaborator.PublishedEndBatchInfo),
	}
}

// AttachStore wires b to a durable local store for future checkpoints.
func (b *Buffers) AttachStore(store *localstore.Store, contractKey []byte) {
	b.store = store
	b.contractKey = append([]byte{}, contractKey...)
}

// RestoreFrom replaces b's buffered contents with whatever was previously
// checkpointed for contractKey, then attaches store for future checkpoints.
// Entries that fail to decode are skipped and logged.
func (b *Buffers) RestoreFrom(store *localstore.Store, contractKey []byte) {
	b.AttachStore(store, contractKey)

	it := store.IterateSuccessfulOpinions(contractKey)
	for it.Next() {
		o, err := opinion.DecodeSuccessful(it.Value())
		if err != nil {
			logger.Warn("skipping malformed buffered successful opinion", "err", err)
			continue
		}
		var peer common.ExecutorKey
		copy(peer[:], it.PeerKey())
		b.Successful.Add(it.BatchIndex(), peer, o)
	}
	it.Release()

	uit := store.IterateUnsuccessfulOpinions(contractKey)
	for uit.Next() {
		o, err := opinion.DecodeUnsuccessful(uit.Value())
		if err != nil {
			logger.Warn("skipping malformed buffered unsuccessful opinion", "err", err)
			continue
		}
		var peer common.ExecutorKey
		copy(peer[:], uit.PeerKey())
		b.Unsuccessful.Add(uit.BatchIndex(), peer, o)
	}
	uit.Release()

	pit := store.IteratePublications(contractKey)
	for pit.Next() {
		info, err := collaborator.DecodePublishedEndBatchInfo(pit.Value())
		if err != nil {
			logger.Warn("skipping malformed buffered publication", "err", err)
			continue
		}
		b.Publications[pit.BatchIndex()] = info
	}
	pit.Release()
}

// AddSuccessful buffers a successful opinion arriving ahead of its batch and
// checkpoints it.
func (b *Buffers) AddSuccessful(batchIndex uint64, peer common.ExecutorKey, o opinion.SuccessfulEndBatchOpinion) {
	b.Successful.Add(batchIndex, peer, o)
	if b.store == nil {
		return
	}
	if err := b.store.PutSuccessfulOpinion(b.contractKey, batchIndex, peer[:], opinion.EncodeSuccessful(o)); err != nil {
		logger.Error("buffered successful opinion checkpoint failed", "err", err)
	}
}

// AddUnsuccessful mirrors AddSuccessful for UnsuccessfulEndBatchOpinion.
func (b *Buffers) AddUnsuccessful(batchIndex uint64, peer common.ExecutorKey, o opinion.UnsuccessfulEndBatchOpinion) {
	b.Unsuccessful.Add(batchIndex, peer, o)
	if b.store == nil {
		return
	}
	if err := b.store.PutUnsuccessfulOpinion(b.contractKey, batchIndex, peer[:], opinion.EncodeUnsuccessful(o)); err != nil {
		logger.Error("buffered unsuccessful opinion checkpoint failed", "err", err)
	}
}

// AddPublication buffers a published-end-batch event arriving ahead of its
// batch and checkpoints it.
func (b *Buffers) AddPublication(info collaborator.PublishedEndBatchInfo) {
	b.Publications[info.BatchIndex] = info
	if b.store == nil {
		return
	}
	if err := b.store.PutPublication(b.contractKey, info.BatchIndex, collaborator.EncodePublishedEndBatchInfo(info)); err != nil {
		logger.Error("buffered publication checkpoint failed", "err", err)
	}
}

// TakeSuccessful removes and returns, in arrival order, every buffered
// successful opinion for batchIndex, clearing their checkpoints.
func (b *Buffers) TakeSuccessful(batchIndex uint64) []opinion.SuccessfulEndBatchOpinion {
	peers := append([]common.ExecutorKey{}, b.Successful.arrivalOrder[batchIndex]...)
	out := b.Successful.Take(batchIndex)
	b.deleteSuccessful(batchIndex, peers)
	return out
}

// TakeUnsuccessful mirrors TakeSuccessful for UnsuccessfulEndBatchOpinion.
func (b *Buffers) TakeUnsuccessful(batchIndex uint64) []opinion.UnsuccessfulEndBatchOpinion {
	peers := append([]common.ExecutorKey{}, b.Unsuccessful.arrivalOrder[batchIndex]...)
	out := b.Unsuccessful.Take(batchIndex)
	b.deleteUnsuccessful(batchIndex, peers)
	return out
}

func (b *Buffers) deleteSuccessful(batchIndex uint64, peers []common.ExecutorKey) {
	if b.store == nil {
		return
	}
	for _, peer := range peers {
		if err := b.store.DeleteSuccessfulOpinion(b.contractKey, batchIndex, peer[:]); err != nil {
			logger.Error("buffered successful opinion delete failed", "err", err)
		}
	}
}

func (b *Buffers) deleteUnsuccessful(batchIndex uint64, peers []common.ExecutorKey) {
	if b.store == nil {
		return
	}
	for _, peer := range peers {
		if err := b.store.DeleteUnsuccessfulOpinion(b.contractKey, batchIndex, peer[:]); err != nil {
			logger.Error("buffered unsuccessful opinion delete failed", "err", err)
		}
	}
}

func (b *Buffers) EvictBelow(min uint64) {
	for _, e := range b.Successful.EvictBelow(min) {
		b.deleteSuccessful(e.BatchIndex, []common.ExecutorKey{e.Peer})
	}
	for _, e := range b.Unsuccessful.EvictBelow(min) {
		b.deleteUnsuccessful(e.BatchIndex, []common.ExecutorKey{e.Peer})
	}
	for idx := range b.Publications {
		if idx < min {
			delete(b.Publications, idx)
			if b.store != nil {
				if err := b.store.DeletePublication(b.contractKey, idx); err != nil {
					logger.Error("buffered publication delete failed", "err", err)
				}
			}
		}
	}
}
