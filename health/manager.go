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

package health

import (
	"sync"
	"time"

	"github.com/facebookincubator/mlagd/protocol"
	log "github.com/sirupsen/logrus"
)

// DefaultDownWaitTimeout is the default reload-delay window spec.md §4.3
// names for DOWN_WAIT before it degrades to COMM_DOWN.
const DefaultDownWaitTimeout = 30 * time.Second

// Scheduler is the timer trait step's ActionScheduleDownWaitTimer /
// ActionCancelDownWaitTimer actions are executed against. Production code
// uses time.AfterFunc; tests inject a fake so no wall-clock wait is needed
// (spec.md §9 design notes: timers are actions, not direct side effects).
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (handle any)
	Cancel(handle any)
}

// realScheduler backs Scheduler with the standard library's timer.
type realScheduler struct{}

func (realScheduler) Schedule(d time.Duration, fn func()) any { return time.AfterFunc(d, fn) }
func (realScheduler) Cancel(h any) {
	if t, ok := h.(*time.Timer); ok {
		t.Stop()
	}
}

// NotifyCB receives the PEER_DOWN, COMM_DOWN, PEER_UP and DOWN_WAIT
// notifications step() emits (spec.md §4.3). Entering PEER_DOWN from IDLE
// on peer_add and returning to IDLE on peer_del emit none; role_change in
// PEER_DOWN re-notifies PEER_DOWN without a state change.
type NotifyCB func(peerIdx int32, state protocol.HealthPeerState)

type peerEntry struct {
	state   protocol.HealthPeerState
	ctx     Context
	timerH  any
}

// Manager is the executor: it owns one Context/state pair per peer, feeds
// every Event through step, and carries out the returned Actions.
type Manager struct {
	mu        sync.Mutex
	peers     map[int32]*peerEntry
	sched     Scheduler
	downWait  time.Duration
	notifyCB  NotifyCB
}

// NewManager builds a Health FSM executor. A nil scheduler uses real
// wall-clock timers; downWait <= 0 uses DefaultDownWaitTimeout.
func NewManager(sched Scheduler, downWait time.Duration) *Manager {
	if sched == nil {
		sched = realScheduler{}
	}
	if downWait <= 0 {
		downWait = DefaultDownWaitTimeout
	}
	return &Manager{
		peers:    make(map[int32]*peerEntry),
		sched:    sched,
		downWait: downWait,
	}
}

// RegisterNotifyCB sets the state-entry notification hook.
func (m *Manager) RegisterNotifyCB(cb NotifyCB) { m.notifyCB = cb }

// State returns a peer's current Health FSM state. ok is false if the peer
// is unknown (equivalent to IDLE with no entry).
func (m *Manager) State(peerIdx int32) (protocol.HealthPeerState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.peers[peerIdx]
	if !ok {
		return protocol.HealthIdle, false
	}
	return e.state, true
}

// Deliver feeds one event for peerIdx through the FSM and runs the
// resulting actions.
func (m *Manager) Deliver(peerIdx int32, ev Event) {
	m.mu.Lock()
	e, ok := m.peers[peerIdx]
	if !ok {
		if ev.Kind != EvPeerAdd {
			m.mu.Unlock()
			return
		}
		e = &peerEntry{state: protocol.HealthIdle}
		m.peers[peerIdx] = e
	}

	next, actions := step(e.state, &e.ctx, ev)
	prev := e.state
	e.state = next
	m.mu.Unlock()

	if prev != next {
		log.Debugf("health: peer %d %s -> %s (event %d)", peerIdx, prev, next, ev.Kind)
	}
	m.runActions(peerIdx, actions)

	if ev.Kind == EvPeerDel {
		m.mu.Lock()
		delete(m.peers, peerIdx)
		m.mu.Unlock()
	}
}

func (m *Manager) runActions(peerIdx int32, actions []Action) {
	for _, a := range actions {
		switch a.Kind {
		case ActionNotify:
			if m.notifyCB != nil {
				m.notifyCB(peerIdx, a.State)
			}
		case ActionScheduleDownWaitTimer:
			m.mu.Lock()
			e, ok := m.peers[peerIdx]
			if ok {
				if e.timerH != nil {
					m.sched.Cancel(e.timerH)
				}
				e.timerH = m.sched.Schedule(m.downWait, func() {
					m.Deliver(peerIdx, Event{Kind: EvTimerExpire})
				})
			}
			m.mu.Unlock()
		case ActionCancelDownWaitTimer:
			m.mu.Lock()
			e, ok := m.peers[peerIdx]
			if ok && e.timerH != nil {
				m.sched.Cancel(e.timerH)
				e.timerH = nil
			}
			m.mu.Unlock()
		}
	}
}
