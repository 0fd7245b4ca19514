// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

// Package collaborator declares the four external-collaborator interfaces
// (Storage, Virtual Machine, Messenger, Blockchain) plus the shared
// async-query handle abstraction every one of them uses. Wire framing and
// transport selection for each is a deployment decision outside this
// module's scope; task/assembly/coordinator/executor program only against
// these interfaces; a concrete binding (e.g. the sarama-backed Messenger in
// messenger/kafka) is free to live in its own package and never needs to be
// imported by the core packages above.
package collaborator

import (
	"context"
	"errors"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

// StorageErrorKind enumerates the ways a storage collaborator call can
// fail.
type StorageErrorKind int

const (
	StorageUnavailable StorageErrorKind = iota
	OpenFileError
	WriteFileError
	ReadFileError
	CloseFileError
	CreateDirError
	PathError
)

// StorageError is the expected<T, StorageError> error arm of every storage
// operation.
type StorageError struct {
	Kind StorageErrorKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return e.Op + ": " + e.Err.Error()
	}
	return e.Op
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is (or wraps) a storage_unavailable
// error: the one StorageError kind that triggers delayBatch/backoff at the
// task level rather than being treated as a hard failure.
func IsUnavailable(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == StorageUnavailable
}

// QueryHandle is the cancellable async-query handle shared by every
// collaborator call: issuing a query returns a handle immediately; the
// reply arrives later as a task event, and Cancel deterministically
// discards a not-yet-delivered reply.
type QueryHandle interface {
	// ID uniquely identifies this in-flight query (a pborman/uuid value in
	// every concrete implementation, see DESIGN.md).
	ID() string
	// Cancel discards the reply if it has not yet been delivered.
	Cancel()
}

// StorageModification is the handle returned by InitiateModifications; it
// scopes every per-call SandboxModification and the final
// ApplyStorageModification/EvaluateStorageHash for one batch.
type StorageModification interface {
	QueryHandle
	ModificationID() common.Key32
}

// SandboxModification is the handle returned by InitiateSandboxModification;
// it scopes one call's provisional drive mutation.
type SandboxModification interface {
	QueryHandle
	CallID() common.CallId
}

// StorageState is the result of EvaluateStorageHash.
type StorageState struct {
	StorageHash common.StorageHash
	UsedSize    uint64
	MetaSize    uint64
	FsTreeSize  uint64
}

// FileHandle is a storage-side open file, scoped to one SandboxModification.
type FileHandle interface {
	Read(ctx context.Context, p []byte) (n int, err error)
	Write(ctx context.Context, p []byte) (n int, err error)
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// DirIterator is a storage-side directory iterator.
type DirIterator interface {
	HasNext(ctx context.Context) (bool, error)
	Next(ctx context.Context) (name string, err error)
	Destroy(ctx context.Context) error
}

// Storage is the drive storage collaborator.
type Storage interface {
	InitiateModifications(ctx context.Context, driveKey common.DriveKey, modificationID common.Key32) (StorageModification, error)
	SynchronizeStorage(ctx context.Context, driveKey common.DriveKey, modificationID common.Key32, targetHash common.StorageHash) error
	ActualModificationID(ctx context.Context, driveKey common.DriveKey) (common.Key32, error)

	InitiateSandboxModification(ctx context.Context, mod StorageModification, callID common.CallId) (SandboxModification, error)
	ApplySandboxModification(ctx context.Context, sbx SandboxModification, success bool) error
	ApplyStorageModification(ctx context.Context, mod StorageModification, success bool) error
	EvaluateStorageHash(ctx context.Context, mod StorageModification) (StorageState, error)

	Open(ctx context.Context, sbx SandboxModification, path string, write bool) (FileHandle, error)
	PathExist(ctx context.Context, sbx SandboxModification, path string) (bool, error)
	IsFile(ctx context.Context, sbx SandboxModification, path string) (bool, error)
	FileSize(ctx context.Context, sbx SandboxModification, path string) (uint64, error)
	CreateDir(ctx context.Context, sbx SandboxModification, path string) error
	Move(ctx context.Context, sbx SandboxModification, from, to string) error
	Remove(ctx context.Context, sbx SandboxModification, path string) error
	CreateIterator(ctx context.Context, sbx SandboxModification, path string) (DirIterator, error)
}
