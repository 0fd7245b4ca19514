// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package executor

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/clevergo/websocket"

	"github.com/proximax-storage/xpx-supercontract-executor/common"
)

// DashboardEvent is one line of the operator feed: a terse, JSON-friendly
// projection of a contract's task transition, fanned out to every attached
// websocket client.
type DashboardEvent struct {
	Contract string `json:"contract"`
	Kind     string `json:"kind"`
	Batch    uint64 `json:"batch,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Dashboard is a broadcast-only websocket feed: operators connect to watch
// task transitions across every contract this executor serves, with no
// inbound control-plane messages accepted.
type Dashboard struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewDashboard constructs an empty Dashboard.
func NewDashboard() *Dashboard {
	return &Dashboard{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection and registers it for broadcast. The
// client is expected to be read-only; Dashboard drains and discards
// anything it sends so the read side doesn't block the connection.
func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("dashboard: upgrade failed", "err", err)
		return
	}

	d.mu.Lock()
	d.clients[conn] = struct{}{}
	d.mu.Unlock()

	go func() {
		defer d.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (d *Dashboard) remove(conn *websocket.Conn) {
	d.mu.Lock()
	delete(d.clients, conn)
	d.mu.Unlock()
	_ = conn.Close()
}

// Broadcast fans out ev to every attached client, dropping any connection
// whose write fails.
func (d *Dashboard) Broadcast(ev DashboardEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for conn := range d.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(d.clients, conn)
			_ = conn.Close()
		}
	}
}

func contractLabel(key common.ContractKey) string { return key.Hex() }
