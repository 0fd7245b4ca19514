// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package common holds the fixed-width identifier types shared by every
// other package in the executor: contract/drive/executor/caller keys, call
// and transaction identifiers, block hashes and the storage root hash, plus
// the Ed25519 signature type used to sign batch opinions.
package common

import (
	"encoding/hex"
	"errors"
)

const (
	// KeySize is the width, in bytes, of every identifier in the data model
	// except Signature: contract/drive/executor/caller keys, call ids,
	// block/transaction/storage hashes.
	KeySize = 32
	// SignatureSize is the width, in bytes, of an opinion signature.
	SignatureSize = 64
)

// ErrInvalidLength is returned when decoding a hex string of the wrong width.
var ErrInvalidLength = errors.New("common: invalid identifier length")

// Key32 is the common representation for every 32-byte identifier in the
// data model. The names below are type aliases of it: they document which
// kind of key a value holds, but the compiler does not keep a ContractKey
// from being passed where a CallId is expected.
type Key32 [KeySize]byte

// ContractKey identifies a supercontract.
type ContractKey = Key32

// DriveKey identifies the content-addressed drive backing a contract.
type DriveKey = Key32

// ExecutorKey identifies a committee peer; it doubles as an Ed25519 public key.
type ExecutorKey = Key32

// CallerKey identifies the account that submitted a CallRequest.
type CallerKey = Key32

// CallId identifies one CallRequest, manual or synthetic (autorun probe).
type CallId = Key32

// BlockHash identifies a block on the backing blockchain.
type BlockHash = Key32

// TransactionHash identifies a transaction on the backing blockchain.
type TransactionHash = Key32

// StorageHash is the content-addressed Merkle root of a contract's drive.
type StorageHash = Key32

// Signature is a detached Ed25519 signature over a canonical opinion
// serialization.
type Signature [SignatureSize]byte

// IsZero reports whether k is the all-zero identifier (used as a sentinel:
// "no released transaction", "identity PoEx verification info" etc.).
func (k Key32) IsZero() bool {
	return k == Key32{}
}

// Hex returns the lowercase hex encoding of k.
func (k Key32) Hex() string {
	return hex.EncodeToString(k[:])
}

func (k Key32) String() string { return k.Hex() }

// MarshalText implements encoding.TextMarshaler so Key32 values serialize as
// hex strings in JSON/TOML.
func (k Key32) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key32) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(decoded) != KeySize {
		return ErrInvalidLength
	}
	copy(k[:], decoded)
	return nil
}

// HexToKey32 decodes a hex string into a Key32, panicking on malformed
// input. Intended for test fixtures and constant identifiers, not for
// decoding untrusted input (use UnmarshalText for that).
func HexToKey32(s string) Key32 {
	var k Key32
	if err := (&k).UnmarshalText([]byte(s)); err != nil {
		panic(err)
	}
	return k
}

func (s Signature) Hex() string { return hex.EncodeToString(s[:]) }

func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.Hex()), nil
}

func (s *Signature) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	if len(decoded) != SignatureSize {
		return ErrInvalidLength
	}
	copy(s[:], decoded)
	return nil
}
