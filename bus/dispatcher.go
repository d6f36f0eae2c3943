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

package bus

import (
	"fmt"
	"sync"

	"github.com/facebookincubator/mlagd/protocol"
	log "github.com/sirupsen/logrus"
)

// QueueDepth is the per-priority-class channel capacity. Enqueue past
// this depth is a fatal logic bug (spec.md §4.1 failure model): it means
// a handler is stuck or the producer is misbehaving, not something a
// retry fixes.
const QueueDepth = 4096

// Dispatcher drains one subsystem's three priority queues on a single
// goroutine: handlers run serially, so subsystem-local state needs no
// locking (spec.md §5).
type Dispatcher struct {
	name string

	high chan Event
	med  chan Event
	low  chan Event

	mu       sync.RWMutex
	handlers map[protocol.Opcode]Handler

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher for the named subsystem
// ("health", "mlag-manager", "mac-sync", ...).
func NewDispatcher(name string) *Dispatcher {
	return &Dispatcher{
		name:     name,
		high:     make(chan Event, QueueDepth),
		med:      make(chan Event, QueueDepth),
		low:      make(chan Event, QueueDepth),
		handlers: make(map[protocol.Opcode]Handler),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// On registers the handler for an opcode, replacing the opcode
// if-ladder the source used with a table (spec.md §9 design notes).
func (d *Dispatcher) On(op protocol.Opcode, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[op] = h
}

// Enqueue posts an event to its priority class. Per spec.md §4.1, a full
// queue is treated as fatal: it panics rather than silently drop or
// block forever, surfacing the logic bug immediately.
func (d *Dispatcher) Enqueue(e Event) {
	var q chan Event
	switch e.Priority {
	case High:
		q = d.high
	case Medium:
		q = d.med
	default:
		q = d.low
	}
	select {
	case q <- e:
	default:
		panic(fmt.Sprintf("bus: dispatcher %q priority %d queue overflow on opcode %s", d.name, e.Priority, e.Opcode))
	}
}

// Run drains the three queues until Stop is called. Every iteration
// re-checks high before med, and med before low, so a pending
// high-priority event always preempts whatever is next in med/low; within
// one class, delivery is strict FIFO because channels preserve send order
// (spec.md §4.1, §5).
func (d *Dispatcher) Run() {
	defer close(d.stopped)
	for {
		select {
		case e := <-d.high:
			d.dispatch(e)
			continue
		default:
		}
		select {
		case e := <-d.high:
			d.dispatch(e)
			continue
		case e := <-d.med:
			d.dispatch(e)
			continue
		default:
		}
		select {
		case e := <-d.high:
			d.dispatch(e)
		case e := <-d.med:
			d.dispatch(e)
		case e := <-d.low:
			d.dispatch(e)
		case <-d.stop:
			d.drainOnStop()
			return
		}
	}
}

func (d *Dispatcher) dispatch(e Event) {
	d.mu.RLock()
	h, ok := d.handlers[e.Opcode]
	d.mu.RUnlock()
	if !ok {
		log.Warnf("bus[%s]: no handler registered for opcode %s", d.name, e.Opcode)
		return
	}
	if err := h(e); err != nil {
		log.Errorf("bus[%s]: handler for opcode %s returned error: %v", d.name, e.Opcode, err)
	}
}

// drainOnStop services whatever is already queued, highest priority
// first, before returning — the bounded "idempotently release resources
// within ~1s" contract of spec.md §5 assumes in-flight work still runs.
func (d *Dispatcher) drainOnStop() {
	for {
		select {
		case e := <-d.high:
			d.dispatch(e)
			continue
		default:
		}
		select {
		case e := <-d.med:
			d.dispatch(e)
			continue
		default:
		}
		select {
		case e := <-d.low:
			d.dispatch(e)
			continue
		default:
		}
		return
	}
}

// Stop signals Run to finish draining and return. Idempotent.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.stopped
}
