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

package portmgr

import (
	"sync"

	"github.com/facebookincubator/mlagd/switchdriver"
	log "github.com/sirupsen/logrus"
)

// Mode is a port's configured aggregation mode.
type Mode uint8

// Mode values (spec.md §4.9).
const (
	ModeStatic Mode = iota
	ModeLACP
)

// GlobalState is the per-port aggregation of local and remote oper
// state (spec.md §4.9).
type GlobalState uint8

// GlobalState values.
const (
	Inactive GlobalState = iota
	ActivePartial
	ActiveFull
	Disabled
)

func (g GlobalState) String() string {
	switch g {
	case Inactive:
		return "INACTIVE"
	case ActivePartial:
		return "ACTIVE_PARTIAL"
	case ActiveFull:
		return "ACTIVE_FULL"
	case Disabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// Port is one MLAG port record.
type Port struct {
	ID        uint32
	Mode      Mode
	LocalUp   bool
	RemoteUp  bool
	Global    GlobalState
	deleting  bool
	ackPeers  map[int32]bool // peers that have acked a pending delete
}

// StateChangeCB fires on every GlobalState recompute.
type StateChangeCB func(portID uint32, state GlobalState)

// Manager owns MLAG port records and drives the two-phase delete
// protocol spec.md §4.9 describes ("notify bus -> wait for all
// subsystems to acknowledge -> destroy in driver").
type Manager struct {
	mu     sync.Mutex
	ports  map[uint32]*Port
	driver switchdriver.Driver
	cb     StateChangeCB
}

// NewManager builds a port manager backed by driver.
func NewManager(driver switchdriver.Driver) *Manager {
	return &Manager{ports: make(map[uint32]*Port), driver: driver}
}

// RegisterStateChangeCB sets the GlobalState notification hook.
func (m *Manager) RegisterStateChangeCB(cb StateChangeCB) { m.cb = cb }

// Create instantiates portID in mode and creates it in the driver.
func (m *Manager) Create(portID uint32, mode Mode) error {
	driverMode := "STATIC"
	if mode == ModeLACP {
		driverMode = "LACP"
	}
	if err := m.driver.PortCreate(portID, driverMode); err != nil {
		return err
	}
	m.mu.Lock()
	m.ports[portID] = &Port{ID: portID, Mode: mode}
	m.mu.Unlock()
	return nil
}

// BeginDelete starts the two-phase delete: it marks the port pending
// and records peerIdxs as the peers whose Ack the caller must wait on
// before FinishDelete can run.
func (m *Manager) BeginDelete(portID uint32, peerIdxs []int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ports[portID]
	if !ok {
		return
	}
	p.deleting = true
	p.ackPeers = make(map[int32]bool, len(peerIdxs))
	for _, idx := range peerIdxs {
		p.ackPeers[idx] = false
	}
}

// Ack records one subsystem/peer's acknowledgement of a pending delete.
// Returns true once every required party has acked, meaning FinishDelete
// is now safe to call.
func (m *Manager) Ack(portID uint32, peerIdx int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ports[portID]
	if !ok || !p.deleting {
		return false
	}
	if _, tracked := p.ackPeers[peerIdx]; tracked {
		p.ackPeers[peerIdx] = true
	}
	for _, acked := range p.ackPeers {
		if !acked {
			return false
		}
	}
	return true
}

// FinishDelete destroys portID in the driver and removes the record.
// Callers must only invoke this after Ack has returned true (or there
// were no peers to wait on).
func (m *Manager) FinishDelete(portID uint32) error {
	m.mu.Lock()
	_, ok := m.ports[portID]
	delete(m.ports, portID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.driver.PortDestroy(portID)
}

// SetLocalOperState updates the local oper bit and recomputes Global.
func (m *Manager) SetLocalOperState(portID uint32, up bool) {
	m.setOper(portID, func(p *Port) { p.LocalUp = up })
}

// SetRemoteOperState updates the remote peer's oper bit, driven by a
// PORT_OPER_STATE_CHANGE received over the peer channel (spec.md §6).
func (m *Manager) SetRemoteOperState(portID uint32, up bool) {
	m.setOper(portID, func(p *Port) { p.RemoteUp = up })
}

func (m *Manager) setOper(portID uint32, mutate func(*Port)) {
	m.mu.Lock()
	p, ok := m.ports[portID]
	if !ok {
		m.mu.Unlock()
		return
	}
	mutate(p)
	p.Global = recompute(p)
	state := p.Global
	m.mu.Unlock()

	log.Debugf("portmgr: port %d -> %s", portID, state)
	if m.cb != nil {
		m.cb(portID, state)
	}
}

func recompute(p *Port) GlobalState {
	switch {
	case !p.LocalUp && !p.RemoteUp:
		return Inactive
	case p.LocalUp && p.RemoteUp:
		return ActiveFull
	default:
		return ActivePartial
	}
}

// Get returns a copy of a port's current record.
func (m *Manager) Get(portID uint32) (Port, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ports[portID]
	if !ok {
		return Port{}, false
	}
	return *p, true
}
