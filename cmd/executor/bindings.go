// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/config"
)

// CollaboratorSet is the per-contract Storage, VirtualMachine and
// Blockchain bindings a deployment supplies. Messenger is built by this
// command itself (messenger/kafka, shared transport for every contract),
// but the drive client, WASM runtime and chain client are infrastructure
// this module never owns, matching the scope collaborator.Storage,
// collaborator.VirtualMachine and collaborator.Blockchain describe.
type CollaboratorSet struct {
	Storage    collaborator.Storage
	VM         collaborator.VirtualMachine
	Blockchain collaborator.Blockchain
}

// buildCollaborators is the integration seam a deployment overrides (by
// replacing this package-level variable from an init() in a sibling file,
// or a build-tag-selected file) to bind a contract entry to a real drive
// client, WASM runtime and chain client. The default errors loudly rather
// than silently running a contract against nothing.
var buildCollaborators = func(entry config.ContractEntry) (CollaboratorSet, error) {
	return CollaboratorSet{}, fmt.Errorf("cmd/executor: no Storage/VirtualMachine/Blockchain binding registered for contract %s; see buildCollaborators in bindings.go", entry.ContractKey.Hex())
}
