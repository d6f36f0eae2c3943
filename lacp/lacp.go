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

// Package lacp implements the master-only LACP aggregator-selection
// arbiter of spec.md §4.7: mutual exclusion per port_id over which
// (partner_sys_id, partner_key) currently owns it, with force-override
// and peer-down cleanup.
package lacp

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/facebookincubator/mlagd/protocol"
	log "github.com/sirupsen/logrus"
)

const numStripes = 16

// Entry is one aggregator-selection record (spec.md §3).
type Entry struct {
	PortID     uint32
	PartnerID  uint64
	PartnerKey uint16
	PeerUses   uint32 // bit per peer index holding this selection
}

// pending is the single queued force-request a port may carry.
type pending struct {
	reqID      uint32
	partnerID  uint64
	partnerKey uint16
	requester  int32
}

// ReleaseCB fires once per entry emptied to zero peer_uses (spec.md
// invariant 2: "exactly one RELEASE").
type ReleaseCB func(portID uint32)

// ResponseCB delivers the asynchronous selection_request verdict.
type ResponseCB func(reqID uint32, resp protocol.LACPResponse, currentPartnerID uint64, currentPartnerKey uint16)

// DB is the arbiter's port-lock table. Entries are keyed by port_id;
// port_id hashing via xxhash picks which of numStripes striped locks
// guards a given port's business-logic critical section (new/match/
// decline/force-eject/release), spreading contention across ports that
// hash to different stripes instead of a single global mutex
// (SPEC_FULL.md DOMAIN STACK: "shard the arbiter's port-lock table").
// Striping on port_id, not on the request's (partner_id, partner_key),
// is required by spec.md §4.7 invariant 2: the resource needing mutual
// exclusion is the port's entry, so two concurrent requests for the
// *same* port_id must serialize on the same stripe even when they carry
// different partner tuples (spec.md §8 scenario 4).
type DB struct {
	stripes  [numStripes]sync.Mutex
	mu       sync.Mutex // guards the map itself; stripes guard per-entry business logic ordering
	entries  map[uint32]*Entry
	pendings map[uint32]*pending

	onRelease  ReleaseCB
	onResponse ResponseCB
}

// NewDB returns an empty arbiter table.
func NewDB() *DB {
	return &DB{entries: make(map[uint32]*Entry), pendings: make(map[uint32]*pending)}
}

// RegisterReleaseCB sets the RELEASE notification hook.
func (d *DB) RegisterReleaseCB(cb ReleaseCB) { d.onRelease = cb }

// RegisterResponseCB sets the selection_request response hook.
func (d *DB) RegisterResponseCB(cb ResponseCB) { d.onResponse = cb }

func stripeIndex(portID uint32) int {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[0:4], portID)
	return int(xxhash.Sum64(buf[:]) % numStripes)
}

// SelectionRequest implements spec.md §4.7's 4-way algorithm.
func (d *DB) SelectionRequest(reqID uint32, portID uint32, partnerID uint64, partnerKey uint16, requester int32, force bool) {
	idx := stripeIndex(portID)
	d.stripes[idx].Lock()
	defer d.stripes[idx].Unlock()

	d.mu.Lock()
	e, exists := d.entries[portID]
	d.mu.Unlock()

	switch {
	case !exists:
		d.mu.Lock()
		d.entries[portID] = &Entry{PortID: portID, PartnerID: partnerID, PartnerKey: partnerKey, PeerUses: 1 << uint(requester)}
		d.mu.Unlock()
		d.respond(reqID, protocol.LACPAccept, partnerID, partnerKey)

	case e.PartnerID == partnerID && e.PartnerKey == partnerKey:
		d.mu.Lock()
		e.PeerUses |= 1 << uint(requester)
		d.mu.Unlock()
		d.respond(reqID, protocol.LACPAccept, partnerID, partnerKey)

	case !force:
		d.respond(reqID, protocol.LACPDecline, e.PartnerID, e.PartnerKey)

	default:
		d.mu.Lock()
		if old, had := d.pendings[portID]; had {
			// only one pending request per port; a second displaces the
			// first with a synthetic DECLINE (spec.md §4.7).
			d.respond(old.reqID, protocol.LACPDecline, e.PartnerID, e.PartnerKey)
		}
		d.pendings[portID] = &pending{reqID: reqID, partnerID: partnerID, partnerKey: partnerKey, requester: requester}
		d.mu.Unlock()
		log.Infof("lacp: port %d force-request queued, ejecting current holders", portID)
		if d.onRelease != nil {
			d.onRelease(portID)
		}
		d.mu.Lock()
		delete(d.entries, portID)
		d.mu.Unlock()
		d.processPending(portID)
	}
}

// processPending promotes a queued force-request once its port is free.
func (d *DB) processPending(portID uint32) {
	d.mu.Lock()
	p, ok := d.pendings[portID]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pendings, portID)
	d.entries[portID] = &Entry{PortID: portID, PartnerID: p.partnerID, PartnerKey: p.partnerKey, PeerUses: 1 << uint(p.requester)}
	d.mu.Unlock()
	d.respond(p.reqID, protocol.LACPAccept, p.partnerID, p.partnerKey)
}

func (d *DB) respond(reqID uint32, resp protocol.LACPResponse, partnerID uint64, partnerKey uint16) {
	if d.onResponse != nil {
		d.onResponse(reqID, resp, partnerID, partnerKey)
	}
}

// SelectionRelease clears requester's bit on portID; the entry is
// deleted and RELEASE emitted once peer_uses reaches zero. Stripes on
// portID like SelectionRequest, so a release can never interleave with
// a concurrent SelectionRequest for the same port (spec.md §4.7
// invariant 2).
func (d *DB) SelectionRelease(portID uint32, requester int32) {
	idx := stripeIndex(portID)
	d.stripes[idx].Lock()
	defer d.stripes[idx].Unlock()

	d.mu.Lock()
	e, ok := d.entries[portID]
	if !ok {
		d.mu.Unlock()
		return
	}
	e.PeerUses &^= 1 << uint(requester)
	empty := e.PeerUses == 0
	if empty {
		delete(d.entries, portID)
	}
	d.mu.Unlock()
	if empty && d.onRelease != nil {
		d.onRelease(portID)
	}
}

// PeerDown clears peerIdx's bit across every entry; any entry reaching
// zero is deleted and emits exactly one RELEASE (spec.md §4.7,
// invariant 2). Every stripe touched by a live entry is held for the
// duration of that entry's mutation, so PeerDown can never observe or
// clobber a SelectionRequest/SelectionRelease in flight for the same
// port.
func (d *DB) PeerDown(peerIdx int32) {
	for i := range d.stripes {
		d.stripes[i].Lock()
	}
	d.mu.Lock()
	var toRelease []uint32
	for portID, e := range d.entries {
		e.PeerUses &^= 1 << uint(peerIdx)
		if e.PeerUses == 0 {
			toRelease = append(toRelease, portID)
			delete(d.entries, portID)
		}
	}
	d.mu.Unlock()
	for i := range d.stripes {
		d.stripes[i].Unlock()
	}

	// onRelease fires with every stripe already released (avoids
	// self-deadlock if the callback re-enters the DB for the same port).
	// SelectionRequest and SelectionRelease, by contrast, invoke their
	// callbacks while still holding the port's stripe.
	for _, portID := range toRelease {
		if d.onRelease != nil {
			d.onRelease(portID)
		}
	}
}

// WipeForRoleChange clears the entire DB on a SLAVE->MASTER transition
// (spec.md §4.4/§4.7): the new master has no authoritative state until
// it repopulates from each peer's SYNC_START payload.
func (d *DB) WipeForRoleChange() {
	d.mu.Lock()
	d.entries = make(map[uint32]*Entry)
	d.pendings = make(map[uint32]*pending)
	d.mu.Unlock()
}

// Get returns a copy of one port's current entry.
func (d *DB) Get(portID uint32) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[portID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}
