// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package task

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/proximax-storage/xpx-supercontract-executor/collaborator"
	"github.com/proximax-storage/xpx-supercontract-executor/common"
	"github.com/proximax-storage/xpx-supercontract-executor/model"
)

// internetSemaphore bounds the number of concurrent outbound HTTP(S)
// requests a single call's InternetQueryHandler may have in flight, per
// contractConfig.maxInternetConnections.
type internetSemaphore struct {
	slots chan struct{}
}

func newInternetSemaphore(max int) *internetSemaphore {
	if max <= 0 {
		max = 1
	}
	return &internetSemaphore{slots: make(chan struct{}, max)}
}

// internetHandler is the VM-facing InternetQueryHandler: bounded outbound
// HTTP(S) fetches on a call's behalf, using stdlib net/http since no
// example repo in the corpus carries a more specific HTTP client worth
// preferring for this concern (see DESIGN.md).
type internetHandler struct {
	sem        *internetSemaphore
	bufferSize int64
	client     *http.Client
}

func newInternetHandler(sem *internetSemaphore, bufferSize int64, timeout time.Duration) collaborator.InternetHandler {
	return &internetHandler{
		sem:        sem,
		bufferSize: bufferSize,
		client:     &http.Client{Timeout: timeout},
	}
}

func (h *internetHandler) Fetch(ctx context.Context, url string, body []byte) ([]byte, error) {
	select {
	case h.sem.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-h.sem.slots }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf := make([]byte, h.bufferSize)
	n, err := resp.Body.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}

// blockchainHandler is the VM-facing BlockchainQueryHandler, specialized by
// call level: MANUAL calls expose transaction hash and service payments,
// AUTOMATIC/AUTORUN calls omit them.
type blockchainHandler struct {
	request model.CallRequest
}

func newBlockchainHandler(request model.CallRequest) collaborator.BlockchainCallHandler {
	return &blockchainHandler{request: request}
}

func (h *blockchainHandler) TransactionHash() (common.TransactionHash, bool) {
	if !h.request.IsManual() {
		return common.TransactionHash{}, false
	}
	return h.request.TransactionHash, true
}

func (h *blockchainHandler) ServicePayments() ([]model.ServicePayment, bool) {
	if !h.request.IsManual() {
		return nil, false
	}
	return h.request.ServicePayments, true
}

func (h *blockchainHandler) CallerKey() common.CallerKey { return h.request.CallerKey }
func (h *blockchainHandler) BlockHeight() uint64         { return h.request.BlockHeight }
func (h *blockchainHandler) ExecutionPayment() uint64    { return h.request.ExecutionPayment }
func (h *blockchainHandler) DownloadPayment() uint64     { return h.request.DownloadPayment }

// storageQueryHandler wraps the contract's Storage collaborator, rooting
// every path under <driveKey>/<callId> inside the sandbox, and force-closes
// any file handles the call leaked open when its sandbox modification is
// applied.
type storageQueryHandler struct {
	collaborator.Storage
	pathPrefix string

	mu      sync.Mutex
	handles []collaborator.FileHandle
}

func newStorageQueryHandler(storage collaborator.Storage, driveKey common.DriveKey, callID common.CallId) *storageQueryHandler {
	return &storageQueryHandler{
		Storage:    storage,
		pathPrefix: fmt.Sprintf("%s/%s", driveKey.Hex(), callID.Hex()),
	}
}

func (h *storageQueryHandler) PathPrefix() string { return h.pathPrefix }

// Open overrides the embedded Storage.Open to track every handle the call
// opens, so closeLeakedHandles can force-close whatever the WASM guest left
// open.
func (h *storageQueryHandler) Open(ctx context.Context, sbx collaborator.SandboxModification, path string, write bool) (collaborator.FileHandle, error) {
	fh, err := h.Storage.Open(ctx, sbx, path, write)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.handles = append(h.handles, fh)
	h.mu.Unlock()
	return fh, nil
}

// closeLeakedHandles closes every file handle the call opened through
// Open, including any the guest already closed (Close errors are ignored);
// called just before the call's sandbox modification is applied.
func (h *storageQueryHandler) closeLeakedHandles(ctx context.Context) {
	h.mu.Lock()
	handles := h.handles
	h.handles = nil
	h.mu.Unlock()

	for _, fh := range handles {
		_ = fh.Close(ctx)
	}
}
