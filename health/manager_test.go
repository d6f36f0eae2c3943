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
	"testing"
	"time"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

// fakeScheduler never fires on its own; tests call fire() explicitly so no
// wall-clock wait is needed (spec.md §9: timers are actions, not real
// side effects, precisely so tests can do this).
type fakeScheduler struct {
	pending map[any]func()
	next    int
	cancels int
}

func newFakeScheduler() *fakeScheduler { return &fakeScheduler{pending: make(map[any]func())} }

func (f *fakeScheduler) Schedule(_ time.Duration, fn func()) any {
	f.next++
	h := f.next
	f.pending[h] = fn
	return h
}

func (f *fakeScheduler) Cancel(h any) {
	f.cancels++
	delete(f.pending, h)
}

func (f *fakeScheduler) fire(h any) {
	if fn, ok := f.pending[h]; ok {
		delete(f.pending, h)
		fn()
	}
}

func (f *fakeScheduler) fireAll() {
	for h, fn := range f.pending {
		delete(f.pending, h)
		fn()
	}
}

func TestManagerDeliverPromotesToPeerUpAndNotifies(t *testing.T) {
	sched := newFakeScheduler()
	m := NewManager(sched, time.Minute)

	var notified []protocol.HealthPeerState
	m.RegisterNotifyCB(func(_ int32, s protocol.HealthPeerState) { notified = append(notified, s) })

	m.Deliver(0, Event{Kind: EvPeerAdd})
	m.Deliver(0, Event{Kind: EvMgmtUp})
	m.Deliver(0, Event{Kind: EvIplChange, IplUp: true})
	m.Deliver(0, Event{Kind: EvKaUp})

	state, ok := m.State(0)
	require.True(t, ok)
	require.Equal(t, protocol.HealthPeerUp, state)
	require.Equal(t, []protocol.HealthPeerState{protocol.HealthPeerUp}, notified)
}

func TestManagerDownWaitTimerExpiryDegradesToCommDown(t *testing.T) {
	sched := newFakeScheduler()
	m := NewManager(sched, time.Minute)

	var notified []protocol.HealthPeerState
	m.RegisterNotifyCB(func(_ int32, s protocol.HealthPeerState) { notified = append(notified, s) })

	m.Deliver(0, Event{Kind: EvPeerAdd})
	m.Deliver(0, Event{Kind: EvMgmtUp})
	m.Deliver(0, Event{Kind: EvIplChange, IplUp: true})
	m.Deliver(0, Event{Kind: EvKaUp})
	require.Len(t, sched.pending, 0)

	m.Deliver(0, Event{Kind: EvKaDown})
	state, _ := m.State(0)
	require.Equal(t, protocol.HealthDownWait, state)
	require.Len(t, sched.pending, 1)

	sched.fireAll()
	state, _ = m.State(0)
	require.Equal(t, protocol.HealthCommDown, state)
	require.Equal(t, protocol.HealthDownWait, notified[len(notified)-2])
	require.Equal(t, protocol.HealthCommDown, notified[len(notified)-1])
}

func TestManagerIplFlapCancelsTimerAndSkipsCommDown(t *testing.T) {
	sched := newFakeScheduler()
	m := NewManager(sched, time.Minute)

	var notified []protocol.HealthPeerState
	m.RegisterNotifyCB(func(_ int32, s protocol.HealthPeerState) { notified = append(notified, s) })

	m.Deliver(0, Event{Kind: EvPeerAdd})
	m.Deliver(0, Event{Kind: EvMgmtUp})
	m.Deliver(0, Event{Kind: EvIplChange, IplUp: true})
	m.Deliver(0, Event{Kind: EvKaUp})

	m.Deliver(0, Event{Kind: EvIplChange, IplUp: false})
	require.Len(t, sched.pending, 1)

	m.Deliver(0, Event{Kind: EvIplChange, IplUp: true})
	require.Len(t, sched.pending, 0)
	require.Equal(t, 1, sched.cancels)

	state, _ := m.State(0)
	require.Equal(t, protocol.HealthPeerUp, state)
	require.NotContains(t, notified, protocol.HealthCommDown)
}

func TestManagerPeerDelRemovesEntry(t *testing.T) {
	sched := newFakeScheduler()
	m := NewManager(sched, time.Minute)

	m.Deliver(0, Event{Kind: EvPeerAdd})
	_, ok := m.State(0)
	require.True(t, ok)

	m.Deliver(0, Event{Kind: EvPeerDel})
	_, ok = m.State(0)
	require.False(t, ok)
}

func TestManagerUnknownPeerIgnoresNonPeerAddEvents(t *testing.T) {
	sched := newFakeScheduler()
	m := NewManager(sched, time.Minute)

	m.Deliver(42, Event{Kind: EvKaUp})
	_, ok := m.State(42)
	require.False(t, ok)
}
