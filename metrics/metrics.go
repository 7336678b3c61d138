// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics exposes the Prometheus instrumentation a running
// node publishes: churn, routing, and relocation counters.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the counters/gauges one node instance reports. A
// fresh Metrics must be registered with a distinct prometheus.Registry
// per node when running several in one process, since collector names
// collide on the default registry.
type Metrics struct {
	Churn                prometheus.Counter
	MessagesBounced      prometheus.Counter
	MessagesForwarded    prometheus.Counter
	Relocations          prometheus.Counter
	UnresponsiveElders   prometheus.Gauge
	SectionMemberCount   prometheus.Gauge
	DedupCacheSize       prometheus.Gauge
}

// New creates a Metrics set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Churn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corenet_churn_total",
			Help: "Total number of Online/Offline/Relocate events accumulated.",
		}),
		MessagesBounced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corenet_messages_bounced_total",
			Help: "Total number of messages bounced due to untrusted source or unknown variant.",
		}),
		MessagesForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corenet_messages_forwarded_total",
			Help: "Total number of messages forwarded to a next hop.",
		}),
		Relocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "corenet_relocations_total",
			Help: "Total number of members relocated.",
		}),
		UnresponsiveElders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corenet_unresponsive_elders",
			Help: "Current count of elders flagged unresponsive.",
		}),
		SectionMemberCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corenet_section_member_count",
			Help: "Current number of members in this node's section.",
		}),
		DedupCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "corenet_dedup_cache_size",
			Help: "Current number of entries in the routing dedup cache.",
		}),
	}
	reg.MustRegister(
		m.Churn,
		m.MessagesBounced,
		m.MessagesForwarded,
		m.Relocations,
		m.UnresponsiveElders,
		m.SectionMemberCount,
		m.DedupCacheSize,
	)
	return m
}
