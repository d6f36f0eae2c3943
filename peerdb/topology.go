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

package peerdb

import (
	"net"
	"sync"

	"github.com/facebookincubator/mlagd/protocol"
)

// MaxIPLs bounds the topology table (design anticipates 1, spec.md §3).
const MaxIPLs = 1

// IPL is one Inter-Peer Link record.
type IPL struct {
	ID              int32
	BoundPortIfindex int32
	LocalIPv4       net.IP
	PeerIPv4        net.IP
	VlanID          uint16
	PortOperState   protocol.OperState
}

// TopologyDB holds the (at most MaxIPLs) IPL records.
type TopologyDB struct {
	mu   sync.RWMutex
	ipls map[int32]*IPL
	// onPeerIPChanged is invoked with (iplID, oldPeerIP) whenever SetPeerIP
	// overwrites a previously configured peer IP, so the caller can delete
	// the stale peer record (spec.md §3 invariant).
	onPeerIPChanged func(iplID int32, oldPeerIP net.IP)
}

// NewTopologyDB returns an empty topology table.
func NewTopologyDB(onPeerIPChanged func(iplID int32, oldPeerIP net.IP)) *TopologyDB {
	return &TopologyDB{
		ipls:            make(map[int32]*IPL),
		onPeerIPChanged: onPeerIPChanged,
	}
}

// Create adds a new IPL record. Returns protocol.ErrNoSpc past MaxIPLs,
// protocol.ErrInval for a duplicate id.
func (db *TopologyDB) Create(iplID int32) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.ipls[iplID]; ok {
		return protocol.ErrInval
	}
	if len(db.ipls) >= MaxIPLs {
		return protocol.ErrNoSpc
	}
	db.ipls[iplID] = &IPL{ID: iplID}
	return nil
}

// Delete removes an IPL record.
func (db *TopologyDB) Delete(iplID int32) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.ipls, iplID)
}

// BindPort sets the bound port ifindex for an IPL.
func (db *TopologyDB) BindPort(iplID int32, ifindex int32) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ipl, ok := db.ipls[iplID]
	if !ok {
		return protocol.ErrNoEnt
	}
	ipl.BoundPortIfindex = ifindex
	return nil
}

// SetLocalIP sets the local endpoint IP for an IPL; a nil/zero IP clears it.
func (db *TopologyDB) SetLocalIP(iplID int32, ip net.IP) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ipl, ok := db.ipls[iplID]
	if !ok {
		return protocol.ErrNoEnt
	}
	ipl.LocalIPv4 = ip
	return nil
}

// SetPeerIP sets the peer endpoint IP for an IPL. Overwriting a
// previously set peer IP fires onPeerIPChanged with the old IP so the
// caller can delete the stale peer record (spec.md §3 invariant).
func (db *TopologyDB) SetPeerIP(iplID int32, ip net.IP) error {
	db.mu.Lock()
	ipl, ok := db.ipls[iplID]
	if !ok {
		db.mu.Unlock()
		return protocol.ErrNoEnt
	}
	old := ipl.PeerIPv4
	ipl.PeerIPv4 = ip
	db.mu.Unlock()

	if old != nil && !old.Equal(ip) && db.onPeerIPChanged != nil {
		db.onPeerIPChanged(iplID, old)
	}
	return nil
}

// SetVlanID sets the IPL's carrier VLAN (ipl_vlan_id).
func (db *TopologyDB) SetVlanID(iplID int32, vlanID uint16) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ipl, ok := db.ipls[iplID]
	if !ok {
		return protocol.ErrNoEnt
	}
	ipl.VlanID = vlanID
	return nil
}

// SetPortOperState records a port oper-state transition for the bound IPL port.
func (db *TopologyDB) SetPortOperState(iplID int32, state protocol.OperState) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	ipl, ok := db.ipls[iplID]
	if !ok {
		return protocol.ErrNoEnt
	}
	ipl.PortOperState = state
	return nil
}

// Get returns the IPL record, or (IPL{}, false).
func (db *TopologyDB) Get(iplID int32) (IPL, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ipl, ok := db.ipls[iplID]
	if !ok {
		return IPL{}, false
	}
	return *ipl, true
}

// All returns a snapshot of every IPL record.
func (db *TopologyDB) All() []IPL {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]IPL, 0, len(db.ipls))
	for _, ipl := range db.ipls {
		out = append(out, *ipl)
	}
	return out
}
