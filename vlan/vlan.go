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

// Package vlan implements the master-only L3 VLAN global-state
// aggregator of spec.md §4.8: per-peer local state feeds a global
// logical-OR, diffed and pushed only for touched VLANs.
package vlan

import (
	"sync"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/facebookincubator/mlagd/switchdriver"
	log "github.com/sirupsen/logrus"
)

// Diff is one VLAN's recomputed global state, the unit pushed to peers
// (VLAN_GLOBAL_STATE_CHANGE, spec.md §6).
type Diff struct {
	VlanID uint16
	State  protocol.OperState
}

// DiffCB delivers a batch of global diffs to every ENABLE/TX_ENABLE peer.
type DiffCB func(diffs []Diff)

// Aggregator holds peer_local[vlan][peer] and global[vlan] (spec.md §3).
type Aggregator struct {
	mu       sync.Mutex
	local    map[uint16]map[int32]bool // vlan -> peer -> up
	global   map[uint16]bool
	enabled  map[int32]bool // peers in PEER_ENABLE/PEER_TX_ENABLE
	iplVlan  uint16
	ifindex  int32
	driver   switchdriver.Driver
	onDiff   DiffCB
}

// NewAggregator builds an aggregator for the reserved IPL VLAN iplVlan
// bound to ifindex (spec.md §4.8's invariant: never removed while the
// peer channel needs it).
func NewAggregator(iplVlan uint16, ifindex int32, driver switchdriver.Driver) *Aggregator {
	return &Aggregator{
		local:   make(map[uint16]map[int32]bool),
		global:  make(map[uint16]bool),
		enabled: make(map[int32]bool),
		iplVlan: iplVlan,
		ifindex: ifindex,
		driver:  driver,
	}
}

// RegisterDiffCB sets the push-to-peers hook.
func (a *Aggregator) RegisterDiffCB(cb DiffCB) { a.onDiff = cb }

// SetPeerEnabled marks peerIdx ENABLE/TX_ENABLE (true) or not (false),
// triggering a full recompute per spec.md §4.8 ("full recompute is
// reserved for peer_enable and peer_down").
func (a *Aggregator) SetPeerEnabled(peerIdx int32, enabled bool) {
	a.mu.Lock()
	if enabled {
		a.enabled[peerIdx] = true
	} else {
		delete(a.enabled, peerIdx)
		for vlan, peers := range a.local {
			delete(peers, peerIdx)
			_ = vlan
		}
	}
	diffs := a.recomputeAllLocked()
	a.mu.Unlock()
	a.apply(diffs)
}

// PeerEnabled reports whether peerIdx is currently in PEER_ENABLE/
// PEER_TX_ENABLE.
func (a *Aggregator) PeerEnabled(peerIdx int32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled[peerIdx]
}

// ApplyLocalBatch applies a slave's VLAN_LOCAL_STATE_CHANGE batch,
// recomputing global state only for the touched VLAN ids (spec.md
// §4.8).
func (a *Aggregator) ApplyLocalBatch(peerIdx int32, states []Diff) {
	a.mu.Lock()
	var touched []uint16
	for _, s := range states {
		peers, ok := a.local[s.VlanID]
		if !ok {
			peers = make(map[int32]bool)
			a.local[s.VlanID] = peers
		}
		peers[peerIdx] = s.State == protocol.OperUp
		touched = append(touched, s.VlanID)
	}
	diffs := a.recomputeLocked(touched)
	a.mu.Unlock()
	a.apply(diffs)
}

func (a *Aggregator) globalFor(vlan uint16) bool {
	peers := a.local[vlan]
	for peerIdx, up := range peers {
		if up && a.enabled[peerIdx] {
			return true
		}
	}
	return false
}

func (a *Aggregator) recomputeLocked(vlans []uint16) []Diff {
	var diffs []Diff
	for _, vlan := range vlans {
		next := a.globalFor(vlan)
		if a.global[vlan] != next {
			a.global[vlan] = next
			diffs = append(diffs, Diff{VlanID: vlan, State: stateOf(next)})
		}
	}
	return diffs
}

func (a *Aggregator) recomputeAllLocked() []Diff {
	all := make([]uint16, 0, len(a.local))
	for vlan := range a.local {
		all = append(all, vlan)
	}
	return a.recomputeLocked(all)
}

func stateOf(up bool) protocol.OperState {
	if up {
		return protocol.OperUp
	}
	return protocol.OperDown
}

// apply pushes diffs to peers and programs the local switch-driver
// membership, protecting ipl_vlan_id from ever being removed (spec.md
// §4.8/invariant 4).
func (a *Aggregator) apply(diffs []Diff) {
	if len(diffs) == 0 {
		return
	}
	for _, d := range diffs {
		if d.VlanID == a.iplVlan && d.State == protocol.OperDown {
			log.Debugf("vlan: refusing to remove reserved ipl_vlan_id %d from membership", a.iplVlan)
			continue
		}
		if d.State == protocol.OperUp {
			if err := a.driver.VlanAdd(d.VlanID, a.ifindex); err != nil {
				log.Errorf("vlan: VlanAdd(%d) failed: %v", d.VlanID, err)
			}
		} else {
			if err := a.driver.VlanRemove(d.VlanID, a.ifindex); err != nil {
				log.Errorf("vlan: VlanRemove(%d) failed: %v", d.VlanID, err)
			}
		}
	}
	if a.onDiff != nil {
		a.onDiff(diffs)
	}
}

// Global returns a snapshot of the current global VLAN map.
func (a *Aggregator) Global() map[uint16]bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[uint16]bool, len(a.global))
	for k, v := range a.global {
		out[k] = v
	}
	return out
}
