// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package poex implements the Proof-of-Execution cryptographic accumulator:
// a cumulative commitment over per-batch random scalars that lets a peer
// later prove, to any on-chain verifier, that it executed every batch it
// signed.
package poex

import (
	"math/big"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/localstore"
)

// BatchProof is the Schnorr-style (T, r) pair anchored at a proof's
// InitialBatch.
type BatchProof struct {
	T Point
	R Scalar
}

// ChallengeProof is the (F, k) pair used to authenticate the proof itself
// (the "Schnorr check" of verifyProof).
type ChallengeProof struct {
	F Point
	K Scalar
}

// Proof is the PoEx proof attached to every SuccessfulEndBatchOpinion /
// UnsuccessfulEndBatchOpinion and replayed by peers in verifyProof.
type Proof struct {
	InitialBatch uint64
	Challenge    ChallengeProof
	Batch        BatchProof
}

// DirectoryEntry is the per-peer bookkeeping the Contract Coordinator's
// executor directory keeps: the batch the peer started proving from, the
// next batch index it still needs to approve, and the latest on-chain
// checkpoint for replaying its proof.
type DirectoryEntry struct {
	InitialBatch       uint64
	NextBatchToApprove uint64
	LatestBatchProof   BatchProof
}

// NewDirectoryEntry seeds a peer's directory entry before any proof has
// been replayed for it. LatestBatchProof must hold the group identity/zero
// scalar rather than Go's Point{}/Scalar{} zero values: Point's arithmetic
// (isIdentity, Neg) dereferences its big.Int fields, which are nil in the
// unkeyed zero value and would panic the first time VerifyProof subtracts
// against it.
func NewDirectoryEntry(initialBatch, nextBatchToApprove uint64) DirectoryEntry {
	return DirectoryEntry{
		InitialBatch:       initialBatch,
		NextBatchToApprove: nextBatchToApprove,
		LatestBatchProof:   BatchProof{T: IdentityPoint(), R: ZeroScalar()},
	}
}

// historyCap bounds the verification-info history: the oldest entry is
// evicted once the count exceeds historyCap.
type historyEntry struct {
	batchIndex uint64
	info       Point
}

// Accumulator is one executor's live PoEx state for one contract.
// Not safe for concurrent use: owned exclusively by the contract's active
// Task/Coordinator.
type Accumulator struct {
	privateKey common.Key32 // Ed25519 seed/private key material, used only to derive nonces
	publicKey  common.ExecutorKey

	x, xPrev Scalar

	initialBatch uint64
	historyCap   uint64
	history      []historyEntry // insertion-order (FIFO), not LRU

	// store/storeKey are nil until AttachStore/RestoreFromStore is called;
	// checkpoint is then a no-op no longer.
	store    *localstore.Store
	storeKey []byte
}

// New creates an Accumulator for the given signing identity, zeroed at
// initialBatch, retaining at most historyCap verification-info entries.
func New(privateKey common.Key32, publicKey common.ExecutorKey, initialBatch uint64, historyCap uint64) *Accumulator {
	return &Accumulator{
		privateKey:   privateKey,
		publicKey:    publicKey,
		x:            ZeroScalar(),
		xPrev:        ZeroScalar(),
		initialBatch: initialBatch,
		historyCap:   historyCap,
	}
}

// VerificationInfo derives (alpha, Y) = (H(digest), alpha*B) from a batch's
// secret digest, exactly as ProofOfExecution::verificationInfo does.
func VerificationInfo(digest uint64) (Scalar, Point) {
	var buf [8]byte
	putUint64(buf[:], digest)
	alpha := ScalarFromHash(buf[:])
	return alpha, MulBase(alpha)
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// generateUniqueRandom derives a nonce deterministically from the private
// key and a secret scalar: two peers observing the same secret scalar must
// never collide on a nonce, so randomness is never drawn from an RNG.
func (a *Accumulator) generateUniqueRandom(secret []byte) Scalar {
	privHash := ScalarFromHash(a.privateKey[:])
	return ScalarFromHash(privHash.Bytes(), secret)
}

// AddToProof folds digest's verification info into the running accumulator
// and returns Y, which the caller must remember as this batch's
// verification info (for its own future replay and for peers' directory
// entries).
func (a *Accumulator) AddToProof(digest uint64) Point {
	alpha, y := VerificationInfo(digest)

	c := ScalarFromHash(BasePoint().Bytes(), y.Bytes(), a.publicKey[:])

	a.xPrev = a.x
	a.x = a.x.Add(c.Mul(alpha))

	a.checkpoint()
	return y
}

// PopFromProof undoes the last AddToProof, used when a published batch
// turns out unsuccessful.
func (a *Accumulator) PopFromProof() {
	a.x = a.xPrev
	a.checkpoint()
}

// BuildActualProof builds a proof for the accumulator's current state.
func (a *Accumulator) BuildActualProof() Proof { return a.buildProof(a.x) }

// BuildPreviousProof builds a proof for the accumulator's state before the
// last AddToProof (used for UnsuccessfulEndBatchOpinion).
func (a *Accumulator) BuildPreviousProof() Proof { return a.buildProof(a.xPrev) }

func (a *Accumulator) buildProof(x Scalar) Proof {
	v := a.generateUniqueRandom(x.Bytes())
	t := MulBase(v)
	r := v.Sub(x)

	w := a.generateUniqueRandom(v.Bytes())
	f := MulBase(w)

	d := ScalarFromHash(f.Bytes(), t.Bytes(), a.publicKey[:])
	k := w.Sub(d.Mul(v))

	return Proof{
		InitialBatch: a.initialBatch,
		Challenge:    ChallengeProof{F: f, K: k},
		Batch:        BatchProof{T: t, R: r},
	}
}

// Reset zeroes the accumulators and anchors a fresh initialBatch; invoked
// by the Synchronize Task after storage resynchronization.
func (a *Accumulator) Reset(nextBatch uint64) {
	a.x = ZeroScalar()
	a.xPrev = ZeroScalar()
	a.initialBatch = nextBatch
	a.history = nil
	a.checkpoint()
}

// InitialBatch returns the accumulator's current anchor batch index.
func (a *Accumulator) InitialBatch() uint64 { return a.initialBatch }

// AddBatchVerificationInformation appends a batch's verification info to
// the replay history, evicting the oldest entry once historyCap is
// exceeded.
func (a *Accumulator) AddBatchVerificationInformation(batchID uint64, info Point) {
	for _, e := range a.history {
		if e.batchIndex == batchID {
			return
		}
	}
	a.history = append(a.history, historyEntry{batchIndex: batchID, info: info})
	if uint64(len(a.history)) > a.historyCap {
		a.history = a.history[1:]
	}
	a.checkpoint()
}

func (a *Accumulator) lookupHistory(batchID uint64) (Point, bool) {
	for _, e := range a.history {
		if e.batchIndex == batchID {
			return e.info, true
		}
	}
	return Point{}, false
}

// VerifyProof is the verifier-side half of the PoEx protocol: it never
// fails fatally, only returns false.
//
// peerKey/peerDirectory describe the peer whose proof is being checked;
// proof/batchID/verificationInfo describe the specific batch opinion being
// validated.
func (a *Accumulator) VerifyProof(peerKey common.ExecutorKey, peerDirectory DirectoryEntry, proof Proof, batchID uint64, verificationInfo Point) bool {
	// Points decoded from a peer's message may lie off the curve, and
	// crypto/elliptic panics on curve arithmetic with such a point.
	for _, p := range []Point{proof.Challenge.F, proof.Batch.T, verificationInfo} {
		if !p.isIdentity() && !curve.IsOnCurve(p.x, p.y) {
			return false
		}
	}

	d := ScalarFromHash(proof.Challenge.F.Bytes(), proof.Batch.T.Bytes(), peerKey[:])
	base := BasePoint()

	// Schnorr check: F == k*B + d*T
	if !proof.Challenge.F.Equal(MulBase(proof.Challenge.K).Add(proof.Batch.T.Mul(d))) {
		return false
	}

	var (
		prevT            Point
		prevR            Scalar
		verifyStartBatch uint64
	)

	switch {
	case peerDirectory.InitialBatch == proof.InitialBatch:
		prevT = peerDirectory.LatestBatchProof.T
		prevR = peerDirectory.LatestBatchProof.R
		verifyStartBatch = peerDirectory.NextBatchToApprove
	case peerDirectory.NextBatchToApprove <= proof.InitialBatch+1:
		// Logically this should be "<", but a peer restart can
		// legitimately produce "<=".
		verifyStartBatch = proof.InitialBatch
	default:
		return false
	}

	left := proof.Batch.T.Sub(prevT)
	right := proof.Batch.R.Sub(prevR)
	rightPoint := MulBase(right)

	for i := verifyStartBatch; i < batchID; i++ {
		info, ok := a.lookupHistory(i)
		if !ok {
			return false
		}
		c := ScalarFromHash(base.Bytes(), info.Bytes(), peerKey[:])
		rightPoint = rightPoint.Add(info.Mul(c))
	}

	c := ScalarFromHash(base.Bytes(), verificationInfo.Bytes(), peerKey[:])
	rightPoint = rightPoint.Add(verificationInfo.Mul(c))

	return left.Equal(rightPoint)
}

// Snapshot is the persisted form of an Accumulator, written to the local
// store after every mutating operation.
type Snapshot struct {
	X, XPrev     *big.Int
	InitialBatch uint64
	HistoryCap   uint64
	History      []HistoryRecord
}

// HistoryRecord is one verification-info history entry in wire form.
type HistoryRecord struct {
	BatchIndex uint64
	X, Y       *big.Int
}

// Snapshot captures a's current state for persistence.
func (a *Accumulator) Snapshot() Snapshot {
	s := Snapshot{
		X:            new(big.Int).Set(a.x.v),
		XPrev:        new(big.Int).Set(a.xPrev.v),
		InitialBatch: a.initialBatch,
		HistoryCap:   a.historyCap,
	}
	for _, e := range a.history {
		s.History = append(s.History, HistoryRecord{BatchIndex: e.batchIndex, X: e.info.x, Y: e.info.y})
	}
	return s
}

// Restore replaces a's state with a previously captured Snapshot.
func (a *Accumulator) Restore(s Snapshot) {
	a.x = Scalar{v: new(big.Int).Set(s.X)}
	a.xPrev = Scalar{v: new(big.Int).Set(s.XPrev)}
	a.initialBatch = s.InitialBatch
	a.historyCap = s.HistoryCap
	a.history = a.history[:0]
	for _, r := range s.History {
		a.history = append(a.history, historyEntry{batchIndex: r.BatchIndex, info: Point{x: r.X, y: r.Y}})
	}
}
