/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package stats implements spec.md §3's 14-counter set plus its JSON and
// Prometheus exposition, binding the abstractly-named counters down to a
// concrete struct (SPEC_FULL.md "SUPPLEMENTED FEATURES").
package stats

import "sync/atomic"

// Counters is the 14 monotonic rx/tx counters, one pair per message
// class named in spec.md §3, plus lacp since it carries both directions
// of the arbiter's selection protocol.
type Counters struct {
	RxHeartbeat   uint64
	TxHeartbeat   uint64
	RxIgmpTunnel  uint64
	TxIgmpTunnel  uint64
	RxXstpTunnel  uint64
	TxXstpTunnel  uint64
	RxNotification uint64
	TxNotification uint64
	RxFdbSync     uint64
	TxFdbSync     uint64
	RxLacp        uint64
	TxLacp        uint64
	DecodeErrors  uint64
	EnqueueDrops  uint64
}

// Registry owns the live Counters and snapshot/reset/increment
// operations, mirroring the teacher's atomic-counter-struct idiom
// (ptp4u/stats).
type Registry struct {
	c Counters
}

// NewRegistry returns a zeroed counter registry.
func NewRegistry() *Registry { return &Registry{} }

func ptrFor(c *Counters, name string) *uint64 {
	switch name {
	case "rx_heartbeat":
		return &c.RxHeartbeat
	case "tx_heartbeat":
		return &c.TxHeartbeat
	case "rx_igmp_tunnel":
		return &c.RxIgmpTunnel
	case "tx_igmp_tunnel":
		return &c.TxIgmpTunnel
	case "rx_xstp_tunnel":
		return &c.RxXstpTunnel
	case "tx_xstp_tunnel":
		return &c.TxXstpTunnel
	case "rx_notification":
		return &c.RxNotification
	case "tx_notification":
		return &c.TxNotification
	case "rx_fdb_sync":
		return &c.RxFdbSync
	case "tx_fdb_sync":
		return &c.TxFdbSync
	case "rx_lacp":
		return &c.RxLacp
	case "tx_lacp":
		return &c.TxLacp
	case "decode_errors":
		return &c.DecodeErrors
	case "enqueue_drops":
		return &c.EnqueueDrops
	default:
		return nil
	}
}

// Names lists every counter name, used by both expositions to iterate a
// stable set.
func Names() []string {
	return []string{
		"rx_heartbeat", "tx_heartbeat",
		"rx_igmp_tunnel", "tx_igmp_tunnel",
		"rx_xstp_tunnel", "tx_xstp_tunnel",
		"rx_notification", "tx_notification",
		"rx_fdb_sync", "tx_fdb_sync",
		"rx_lacp", "tx_lacp",
		"decode_errors", "enqueue_drops",
	}
}

// Inc atomically increments the named counter by delta. Unknown names
// are a no-op — callers use the Names() constants.
func (r *Registry) Inc(name string, delta uint64) {
	if p := ptrFor(&r.c, name); p != nil {
		atomic.AddUint64(p, delta)
	}
}

// Snapshot returns a copy of the counters read atomically field-by-field.
func (r *Registry) Snapshot() Counters {
	var out Counters
	for _, name := range Names() {
		atomic.StoreUint64(ptrFor(&out, name), atomic.LoadUint64(ptrFor(&r.c, name)))
	}
	return out
}

// Reset zeroes every counter (mlagctl counters_clear, spec.md §6).
func (r *Registry) Reset() {
	for _, name := range Names() {
		atomic.StoreUint64(ptrFor(&r.c, name), 0)
	}
}

// Get returns one counter's current value by name.
func (r *Registry) Get(name string) uint64 {
	if p := ptrFor(&r.c, name); p != nil {
		return atomic.LoadUint64(p)
	}
	return 0
}
