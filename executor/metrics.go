// Copyright 2026 The xpx-supercontract-executor Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0 license
// that can be found in the LICENSE file.

package executor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the per-executor Prometheus collectors, registered once and
// shared by every contract's runtime. Labels are kept to "contract" (plus
// "reason" on OpinionsRejected) so cardinality stays bounded by the number
// of contracts this process actually serves.
type Metrics struct {
	BatchesStarted   *prometheus.CounterVec
	BatchesSucceeded *prometheus.CounterVec
	BatchesMismatched *prometheus.CounterVec
	BatchExecutionSeconds *prometheus.HistogramVec
	ActiveTask       *prometheus.GaugeVec
	OpinionsReceived *prometheus.CounterVec
	OpinionsRejected *prometheus.CounterVec
	QuorumSize       *prometheus.GaugeVec
}

// NewMetrics constructs and registers the executor's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supercontract_executor",
			Name:      "batches_started_total",
			Help:      "Batch execution tasks started, per contract.",
		}, []string{"contract"}),
		BatchesSucceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supercontract_executor",
			Name:      "batches_succeeded_total",
			Help:      "Batches whose on-chain publication matched local state, per contract.",
		}, []string{"contract"}),
		BatchesMismatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supercontract_executor",
			Name:      "batches_mismatched_total",
			Help:      "Batches whose on-chain publication mismatched local state and triggered a synchronize, per contract.",
		}, []string{"contract"}),
		BatchExecutionSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "supercontract_executor",
			Name:      "batch_execution_seconds",
			Help:      "Wall-clock time from InitiateModifications to opinion formation, per contract.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"contract"}),
		ActiveTask: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "supercontract_executor",
			Name:      "active_task",
			Help:      "The ActiveKind value of the contract's current task (0=none,1=init,2=synchronize,3=batch,4=remove).",
		}, []string{"contract"}),
		OpinionsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supercontract_executor",
			Name:      "peer_opinions_received_total",
			Help:      "Peer opinions received, accepted or not, per contract.",
		}, []string{"contract"}),
		OpinionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "supercontract_executor",
			Name:      "peer_opinions_rejected_total",
			Help:      "Peer opinions dropped because they could not be decoded, labeled by reason, per contract.",
		}, []string{"contract", "reason"}),
		QuorumSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "supercontract_executor",
			Name:      "quorum_size",
			Help:      "Number of committee peers (including self) configured for the active batch, per contract.",
		}, []string{"contract"}),
	}

	reg.MustRegister(
		m.BatchesStarted,
		m.BatchesSucceeded,
		m.BatchesMismatched,
		m.BatchExecutionSeconds,
		m.ActiveTask,
		m.OpinionsReceived,
		m.OpinionsRejected,
		m.QuorumSize,
	)
	return m
}
