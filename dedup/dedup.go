// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package dedup bounds the work spent re-validating messenger deliveries
// the executor has already processed: a Bloom filter pre-filter in front of
// a bounded LRU of recently seen message digests, mirroring the ARC/LRU
// "recentMessages"/"knownMessages" caches in
// consensus/istanbul/backend/backend.go.
package dedup

import (
	"crypto/sha256"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/steakknife/bloomfilter"
)

// Key is a digest over a (sender, tag, content) delivery.
type Key [32]byte

func KeyOf(sender, tag, content []byte) Key {
	h := sha256.New()
	h.Write(sender)
	h.Write(tag)
	h.Write(content)
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Seen is a Bloom-filtered, bounded-LRU deduplication cache for inbound
// messages and opinions.
type Seen struct {
	mu     sync.Mutex
	bloom  *bloomfilter.Filter
	recent *lru.Cache

	maxElements uint64
	inserted    uint64
	falsePositiveRate float64
}

// New builds a Seen cache sized for maxElements entries at the given
// target false-positive rate for the Bloom pre-filter, with an LRU of the
// same capacity backing exact membership.
func New(maxElements uint64, falsePositiveRate float64) (*Seen, error) {
	bloom, err := bloomfilter.NewOptimal(maxElements, falsePositiveRate)
	if err != nil {
		return nil, err
	}
	recent, err := lru.New(int(maxElements))
	if err != nil {
		return nil, err
	}
	return &Seen{
		bloom:             bloom,
		recent:            recent,
		maxElements:       maxElements,
		falsePositiveRate: falsePositiveRate,
	}, nil
}

// keyHashable adapts Key to bloomfilter.Hashable.
type keyHashable Key

func (k keyHashable) Bytes() []byte { return k[:] }

// CheckAndMark reports whether key was already seen; if not, it is recorded
// in both the Bloom filter and the LRU.
func (s *Seen) CheckAndMark(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recent.Get(key); ok {
		return true
	}
	if !s.bloom.Contains(keyHashable(key)) {
		s.bloom.Add(keyHashable(key))
		s.recent.Add(key, struct{}{})
		s.inserted++
		return false
	}

	// Bloom filter says "maybe seen"; the LRU miss above means it is either
	// a false positive or an entry the LRU has since evicted. Either way we
	// cannot prove it was seen, so treat it as new but do not re-add to the
	// Bloom filter (it is already set).
	s.recent.Add(key, struct{}{})
	s.inserted++
	return false
}

// Len reports how many times CheckAndMark has reported a key as new; a key
// seen again after the LRU evicted it is counted again (not decremented on
// LRU eviction; informational only).
func (s *Seen) Len() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}
