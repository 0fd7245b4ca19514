// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package localstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorSnapshotRoundTripsThroughCompressionAndCache(t *testing.T) {
	store := New(newMemKV(), 0)
	contractKey := []byte("contract-a")

	_, err := store.GetAccumulatorSnapshot(contractKey)
	assert.Equal(t, ErrNotFound, err)

	encoded := []byte("a snapshot blob, repeated, repeated, repeated for the compressor to chew on")
	require.NoError(t, store.PutAccumulatorSnapshot(contractKey, encoded))

	got, err := store.GetAccumulatorSnapshot(contractKey)
	require.NoError(t, err)
	assert.Equal(t, encoded, got)

	// Evict the read-through cache and confirm the compressed disk copy
	// decodes back to the same bytes.
	store.snapshotCache.Reset()
	got, err = store.GetAccumulatorSnapshot(contractKey)
	require.NoError(t, err)
	assert.Equal(t, encoded, got)
}

func TestDirectoryIteratorStripsContractKeyAndExposesExecutorKey(t *testing.T) {
	store := New(newMemKV(), 0)
	contractKey := []byte("contract-a")
	peerA := []byte("peer-aaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	peerB := []byte("peer-bbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	require.NoError(t, store.PutDirectoryEntry(contractKey, peerA, []byte("entry-a")))
	require.NoError(t, store.PutDirectoryEntry(contractKey, peerB, []byte("entry-b")))

	it := store.IterateDirectory(contractKey)
	defer it.Release()

	seen := map[string]string{}
	for it.Next() {
		seen[string(it.ExecutorKey())] = string(it.Value())
	}
	assert.Equal(t, map[string]string{
		string(peerA): "entry-a",
		string(peerB): "entry-b",
	}, seen)
}

func TestOpinionAndPublicationIteratorsRoundTripBatchIndexAndPeer(t *testing.T) {
	store := New(newMemKV(), 0)
	contractKey := []byte("contract-a")
	peer := []byte("peer-aaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	require.NoError(t, store.PutSuccessfulOpinion(contractKey, 7, peer, []byte("succ")))
	require.NoError(t, store.PutUnsuccessfulOpinion(contractKey, 8, peer, []byte("unsucc")))
	require.NoError(t, store.PutPublication(contractKey, 9, []byte("pub")))

	sit := store.IterateSuccessfulOpinions(contractKey)
	require.True(t, sit.Next())
	assert.Equal(t, uint64(7), sit.BatchIndex())
	assert.Equal(t, peer, sit.PeerKey())
	assert.Equal(t, []byte("succ"), sit.Value())
	sit.Release()

	uit := store.IterateUnsuccessfulOpinions(contractKey)
	require.True(t, uit.Next())
	assert.Equal(t, uint64(8), uit.BatchIndex())
	uit.Release()

	pit := store.IteratePublications(contractKey)
	require.True(t, pit.Next())
	assert.Equal(t, uint64(9), pit.BatchIndex())
	pit.Release()

	require.NoError(t, store.DeleteSuccessfulOpinion(contractKey, 7, peer))
	sit = store.IterateSuccessfulOpinions(contractKey)
	assert.False(t, sit.Next())
	sit.Release()

	require.NoError(t, store.DeletePublication(contractKey, 9))
	pit = store.IteratePublications(contractKey)
	assert.False(t, pit.Next())
	pit.Release()
}
