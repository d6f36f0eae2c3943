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

// Package heartbeat implements the UDP keepalive described in spec.md
// §4.2: fixed-interval sequence-numbered datagrams with local/remote
// defect flags, driving up/down edges for the Health FSM. It never owns
// a socket itself — register_send_cb/register_state_cb are
// dependency-injected, so tests run with fake transports (spec.md §9
// design notes: "keep as trait injection; enables test doubles").
package heartbeat

import (
	"sync"

	"github.com/eclesh/welford"
	"github.com/facebookincubator/mlagd/protocol"
	log "github.com/sirupsen/logrus"
)

// Threshold is the consecutive in-sequence packet count required to
// promote a peer DOWN->UP, and also the number of missed ticks that
// demotes an UP peer back to DOWN (spec.md §4.2/§3).
const Threshold = 3

// State is a peer's heartbeat liveness state.
type State uint8

// State values.
const (
	Inactive State = iota
	Down
	Up
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "INACTIVE"
	case Down:
		return "DOWN"
	case Up:
		return "UP"
	default:
		return "UNKNOWN"
	}
}

// Counters are the heartbeat subsystem's contribution to the 14-counter
// set in spec.md §3, scoped per peer.
type Counters struct {
	TxHeartbeat uint64
	RxHeartbeat uint64
	RxMiss      uint64
	RxTimeout   uint64
	TxErrors    uint64
}

type peerState struct {
	state State

	txSeq uint16

	lastRxSeq   uint16
	lastRxSysID uint64
	lastRxTick  uint64

	localDefect       bool // our own graceful-shutdown flag, carried outbound
	observedPeerLocal bool // peer's local_defect as last reported to us; echoed back as our remote_defect

	consecutiveGood int
	jitter          *welford.Stats

	counters Counters
}

// StateCB is invoked on every UP/DOWN edge for a peer.
type StateCB func(peerIdx int32, up bool)

// SendCB performs the actual UDP send; errors only increment tx_errors
// (spec.md §4.2 failure model — never fatal).
type SendCB func(peerIdx int32, payload []byte) error

// Manager tracks heartbeat state for every monitored peer.
type Manager struct {
	mu       sync.Mutex
	peers    map[int32]*peerState
	systemID uint64

	tick uint64

	stateCB StateCB
	sendCB  SendCB
}

// NewManager creates a heartbeat manager advertising localSystemID in
// every outbound packet.
func NewManager(localSystemID uint64) *Manager {
	return &Manager{
		peers:    make(map[int32]*peerState),
		systemID: localSystemID,
	}
}

// SetSystemID updates the local system ID advertised in outbound
// heartbeats, for the rare chassis-identity change driven by
// lacp_local_sys_id_set (spec.md §6) rather than startup configuration.
func (m *Manager) SetSystemID(systemID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systemID = systemID
}

// RegisterStateCB sets the UP/DOWN notification hook.
func (m *Manager) RegisterStateCB(cb StateCB) { m.stateCB = cb }

// RegisterSendCB sets the UDP send hook.
func (m *Manager) RegisterSendCB(cb SendCB) { m.sendCB = cb }

// PeerAdd creates a monitoring slot for peerIdx, starting DOWN.
func (m *Manager) PeerAdd(peerIdx int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[peerIdx] = &peerState{state: Down, jitter: welford.New()}
}

// PeerRemove tears down the monitoring slot for peerIdx.
func (m *Manager) PeerRemove(peerIdx int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, peerIdx)
}

// SetLocalDefect sets/clears the outbound local_defect flag, e.g. to
// force the far side DOWN on graceful shutdown (spec.md §4.2).
func (m *Manager) SetLocalDefect(peerIdx int32, defect bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.peers[peerIdx]; ok {
		p.localDefect = defect
	}
}

// Counters returns a snapshot of one peer's heartbeat counters.
func (m *Manager) Counters(peerIdx int32) (Counters, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.peers[peerIdx]
	if !ok {
		return Counters{}, false
	}
	return p.counters, true
}

// Recv processes one inbound datagram for peerIdx. Returns
// protocol.ErrNoEnt for an unknown peerIdx, matching spec.md §4.2
// "Unknown peer_idx in recv returns NotFound without effect."
func (m *Manager) Recv(peerIdx int32, payload []byte) error {
	hb := &protocol.HeartbeatPayload{}
	if err := hb.UnmarshalBinary(payload); err != nil {
		return err
	}

	m.mu.Lock()
	p, ok := m.peers[peerIdx]
	if !ok {
		m.mu.Unlock()
		return protocol.ErrNoEnt
	}

	p.counters.RxHeartbeat++
	p.observedPeerLocal = hb.LocalDefect != 0
	remoteReportsDefect := hb.RemoteDefect != 0
	sysIDChanged := p.lastRxSysID != 0 && p.lastRxSysID != hb.SystemID
	p.lastRxSysID = hb.SystemID

	var wentDown, wentUp bool

	switch p.state {
	case Down:
		diff := seqDistance(p.lastRxSeq, hb.Sequence)
		if diff == 1 && !remoteReportsDefect {
			p.consecutiveGood++
		} else {
			p.consecutiveGood = 0
		}
		p.lastRxSeq = hb.Sequence
		p.lastRxTick = m.tick
		if p.consecutiveGood >= Threshold {
			p.state = Up
			p.consecutiveGood = 0
			wentUp = true
		}
	case Up:
		if hb.LocalDefect != 0 || remoteReportsDefect || sysIDChanged {
			p.state = Down
			p.lastRxTick = m.tick
			p.lastRxSeq = hb.Sequence
			wentDown = true
			break
		}
		diff := seqDistance(p.lastRxSeq, hb.Sequence)
		if diff == 1 {
			p.jitter.Add(float64(m.tick - p.lastRxTick))
			p.lastRxSeq = hb.Sequence
			p.lastRxTick = m.tick
		} else {
			// gap: count the packets that never arrived, but per
			// spec.md §4.2 do not reset last_rx_tick on a miss.
			missed := diff
			if missed > 0 {
				missed--
			}
			p.counters.RxMiss += uint64(missed)
			p.lastRxSeq = hb.Sequence
		}
	}
	m.mu.Unlock()

	if wentUp {
		log.Infof("heartbeat: peer %d DOWN -> UP", peerIdx)
		if m.stateCB != nil {
			m.stateCB(peerIdx, true)
		}
	}
	if wentDown {
		log.Infof("heartbeat: peer %d UP -> DOWN", peerIdx)
		if m.stateCB != nil {
			m.stateCB(peerIdx, false)
		}
	}
	return nil
}

// Tick is called at the keepalive interval: sends one packet per active
// peer and checks every UP peer for a stale last_rx_tick.
func (m *Manager) Tick() {
	m.mu.Lock()
	m.tick++
	type outbound struct {
		idx     int32
		payload []byte
	}
	var out []outbound
	var timedOut []int32

	for idx, p := range m.peers {
		if p.state == Inactive {
			continue
		}
		p.txSeq++
		hb := &protocol.HeartbeatPayload{
			SystemID:     m.systemID,
			Sequence:     p.txSeq,
			LocalDefect:  boolToByte(p.localDefect),
			RemoteDefect: boolToByte(p.observedPeerLocal),
		}
		buf, _ := hb.MarshalBinary()
		out = append(out, outbound{idx: idx, payload: buf})
		p.counters.TxHeartbeat++

		if p.state == Up && m.tick-p.lastRxTick > Threshold {
			p.state = Down
			p.counters.RxTimeout++
			timedOut = append(timedOut, idx)
		}
	}
	m.mu.Unlock()

	for _, o := range out {
		if m.sendCB == nil {
			continue
		}
		if err := m.sendCB(o.idx, o.payload); err != nil {
			m.mu.Lock()
			if p, ok := m.peers[o.idx]; ok {
				p.counters.TxErrors++
			}
			m.mu.Unlock()
			log.Warnf("heartbeat: send to peer %d failed: %v", o.idx, err)
		}
	}
	for _, idx := range timedOut {
		log.Infof("heartbeat: peer %d UP -> DOWN (timeout)", idx)
		if m.stateCB != nil {
			m.stateCB(idx, false)
		}
	}
}

// seqDistance computes (b - a) mod 2^16 as spec.md invariant 5 requires.
func seqDistance(a, b uint16) uint16 {
	return b - a
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
