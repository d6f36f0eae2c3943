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

// Package peerdb holds the Peer and IPL tables (spec.md §3). Writes are
// confined to the mlag-manager dispatcher; other dispatchers read
// through the same load/store surface the teacher uses for its
// subscription maps, which keeps the lock held for the shortest possible
// critical section.
package peerdb

import (
	"net"
	"sort"
	"sync"

	"github.com/facebookincubator/mlagd/protocol"
)

// Peer is one configured MLAG peer chassis.
type Peer struct {
	LocalIndex int32
	MlagID     protocol.MlagID
	PeerIPv4   net.IP
	SystemID   uint64
	IPLID      int32
	PortIndex  int32

	MgmtUp   bool
	HealthKA bool // keepalive reachability, owned by the heartbeat subsystem
}

// PeerDB maps a stable local_index to a Peer. local_index is assigned
// once, at PeerAdd, and never reused while the peer is live.
type PeerDB struct {
	mu      sync.RWMutex
	byIndex map[int32]*Peer
	byIP    map[string]int32
	next    int32
}

// NewPeerDB returns an empty peer table.
func NewPeerDB() *PeerDB {
	return &PeerDB{
		byIndex: make(map[int32]*Peer),
		byIP:    make(map[string]int32),
	}
}

// Add creates a new peer record for peerIP. Returns protocol.ErrInval if
// peerIP is already registered (peer_ipv4 must be unique, spec.md §3).
func (db *PeerDB) Add(peerIP net.IP, iplID int32) (*Peer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := peerIP.String()
	if _, ok := db.byIP[key]; ok {
		return nil, protocol.ErrInval
	}

	p := &Peer{
		LocalIndex: db.next,
		MlagID:     protocol.MlagIDInvalid,
		PeerIPv4:   peerIP,
		IPLID:      iplID,
	}
	db.byIndex[p.LocalIndex] = p
	db.byIP[key] = p.LocalIndex
	db.next++
	return p, nil
}

// Delete removes the peer record for the given local index.
func (db *PeerDB) Delete(localIndex int32) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.byIndex[localIndex]
	if !ok {
		return
	}
	delete(db.byIP, p.PeerIPv4.String())
	delete(db.byIndex, localIndex)
}

// Get returns the peer record for a local index, or (Peer{}, false).
func (db *PeerDB) Get(localIndex int32) (Peer, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	p, ok := db.byIndex[localIndex]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// GetByIP returns the peer record for a peer IPv4, or (Peer{}, false).
func (db *PeerDB) GetByIP(peerIP net.IP) (Peer, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	idx, ok := db.byIP[peerIP.String()]
	if !ok {
		return Peer{}, false
	}
	return *db.byIndex[idx], true
}

// SetMlagID assigns the role-derived mlag_id for a peer (master election
// writes this; everyone else only reads it).
func (db *PeerDB) SetMlagID(localIndex int32, id protocol.MlagID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.byIndex[localIndex]; ok {
		p.MlagID = id
	}
}

// SetSystemID records the system_id learned from a peer's first heartbeat.
func (db *PeerDB) SetSystemID(localIndex int32, systemID uint64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.byIndex[localIndex]; ok {
		p.SystemID = systemID
	}
}

// SetMgmtUp records the out-of-band management connection state.
func (db *PeerDB) SetMgmtUp(localIndex int32, up bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p, ok := db.byIndex[localIndex]; ok {
		p.MgmtUp = up
	}
}

// All returns a snapshot of every peer record, ordered by local index.
func (db *PeerDB) All() []Peer {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]Peer, 0, len(db.byIndex))
	for _, p := range db.byIndex {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalIndex < out[j].LocalIndex })
	return out
}
