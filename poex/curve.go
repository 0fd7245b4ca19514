// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package poex

import (
	"crypto/elliptic"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// curve is the prime-order group the accumulator operates over: a fixed
// curve with base point B. See DESIGN.md for why this is implemented on
// crypto/elliptic rather than a third-party library: golang.org/x/crypto
// only exposes curve25519.X25519 (scalar-mult against a caller-supplied
// point), with no point-addition primitive, and VerifyProof's replay sum
// needs both.
var curve = elliptic.P256()

// Scalar is an element of Z_n, n the curve's group order.
type Scalar struct {
	v *big.Int
}

// Point is a group element (B, Y, T, F in the proof construction below).
type Point struct {
	x, y *big.Int
}

// ZeroScalar is the additive identity.
func ZeroScalar() Scalar { return Scalar{v: new(big.Int)} }

// BasePoint returns B, the curve's generator.
func BasePoint() Point {
	p := curve.Params()
	return Point{x: new(big.Int).Set(p.Gx), y: new(big.Int).Set(p.Gy)}
}

// IdentityPoint returns the group identity (point at infinity), used as the
// "zero batch contribution" verification info for unsuccessful opinions.
func IdentityPoint() Point { return Point{x: new(big.Int), y: new(big.Int)} }

func (p Point) isIdentity() bool {
	return p.x.Sign() == 0 && p.y.Sign() == 0
}

// ScalarFromHash reduces a SHA3-512 digest modulo the group order, yielding
// a uniformly distributed scalar; this is the "H(...)" used throughout the
// nonce/challenge derivations below.
func ScalarFromHash(parts ...[]byte) Scalar {
	h := sha3.New512()
	for _, p := range parts {
		h.Write(p)
	}
	digest := h.Sum(nil)
	v := new(big.Int).SetBytes(digest)
	v.Mod(v, curve.Params().N)
	return Scalar{v: v}
}

// Add returns s + other (mod n).
func (s Scalar) Add(other Scalar) Scalar {
	v := new(big.Int).Add(s.v, other.v)
	v.Mod(v, curve.Params().N)
	return Scalar{v: v}
}

// Sub returns s - other (mod n).
func (s Scalar) Sub(other Scalar) Scalar {
	v := new(big.Int).Sub(s.v, other.v)
	v.Mod(v, curve.Params().N)
	return Scalar{v: v}
}

// Mul returns s * other (mod n).
func (s Scalar) Mul(other Scalar) Scalar {
	v := new(big.Int).Mul(s.v, other.v)
	v.Mod(v, curve.Params().N)
	return Scalar{v: v}
}

// Equal reports scalar equality.
func (s Scalar) Equal(other Scalar) bool { return s.v.Cmp(other.v) == 0 }

// Bytes returns a fixed-width big-endian encoding of s, for hashing.
func (s Scalar) Bytes() []byte {
	buf := make([]byte, 32)
	b := s.v.Bytes()
	copy(buf[32-len(b):], b)
	return buf
}

// Mul returns k*p, the curve scalar multiplication.
func (p Point) Mul(k Scalar) Point {
	x, y := curve.ScalarMult(p.x, p.y, k.v.Bytes())
	return Point{x: x, y: y}
}

// MulBase returns k*B.
func MulBase(k Scalar) Point {
	x, y := curve.ScalarBaseMult(k.v.Bytes())
	return Point{x: x, y: y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	if p.isIdentity() {
		return q
	}
	if q.isIdentity() {
		return p
	}
	x, y := curve.Add(p.x, p.y, q.x, q.y)
	return Point{x: x, y: y}
}

// Neg returns -p.
func (p Point) Neg() Point {
	if p.isIdentity() {
		return p
	}
	y := new(big.Int).Sub(curve.Params().P, p.y)
	return Point{x: new(big.Int).Set(p.x), y: y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return p.Add(q.Neg()) }

// Equal reports point equality.
func (p Point) Equal(q Point) bool {
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

// Bytes returns the fixed-width 64-byte concatenation of p's affine
// coordinates (32 bytes each, big-endian), used both for hashing into a
// challenge and as the wire encoding copied into PublishedEndBatchInfo /
// EndBatchTransactionInfo's [64]byte fields (see DecodePointBytes).
func (p Point) Bytes() []byte {
	buf := make([]byte, 64)
	xb := p.x.Bytes()
	yb := p.y.Bytes()
	copy(buf[32-len(xb):32], xb)
	copy(buf[64-len(yb):64], yb)
	return buf
}

// DecodePointBytes parses the wire form produced by Point.Bytes back into a
// Point. It does not validate curve membership; opinion/wire.go decodes
// peer-supplied bytes with it, and Accumulator.VerifyProof rejects
// off-curve points before doing curve arithmetic with them.
func DecodePointBytes(b []byte) Point {
	var padded [64]byte
	copy(padded[64-len(b):], b)
	x := new(big.Int).SetBytes(padded[:32])
	y := new(big.Int).SetBytes(padded[32:])
	return Point{x: x, y: y}
}

// DecodeScalarBytes parses the fixed-width big-endian encoding produced by
// Scalar.Bytes back into a Scalar, reducing modulo the group order for
// safety against a malformed wire value.
func DecodeScalarBytes(b []byte) Scalar {
	v := new(big.Int).SetBytes(b)
	v.Mod(v, curve.Params().N)
	return Scalar{v: v}
}
