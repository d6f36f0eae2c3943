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
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

func TestDispatcherStrictFIFOWithinPriority(t *testing.T) {
	d := NewDispatcher("test")

	var mu sync.Mutex
	var order []int

	d.On(protocol.OpPeerAdd, func(e Event) error {
		mu.Lock()
		order = append(order, e.Data.(int))
		mu.Unlock()
		return nil
	})

	go d.Run()
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Enqueue(Event{Opcode: protocol.OpPeerAdd, Priority: Low, Data: i})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 10
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestDispatcherHighPreemptsLow(t *testing.T) {
	d := NewDispatcher("test")

	var mu sync.Mutex
	var order []string

	record := func(tag string) Handler {
		return func(Event) error {
			mu.Lock()
			order = append(order, tag)
			mu.Unlock()
			return nil
		}
	}
	d.On(protocol.OpPeerAdd, record("low"))
	d.On(protocol.OpPeerDel, record("high"))

	// Fill low before starting the dispatcher so both are pending at once.
	for i := 0; i < 5; i++ {
		d.Enqueue(Event{Opcode: protocol.OpPeerAdd, Priority: Low})
	}
	d.Enqueue(Event{Opcode: protocol.OpPeerDel, Priority: High})

	go d.Run()
	defer d.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 6
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "high", order[0])
}

func TestDispatcherUnknownOpcodeDoesNotPanic(t *testing.T) {
	d := NewDispatcher("test")
	go d.Run()
	defer d.Stop()

	d.Enqueue(Event{Opcode: protocol.OpStart, Priority: High})
	time.Sleep(10 * time.Millisecond)
}

func TestDispatcherEnqueueOverflowPanics(t *testing.T) {
	d := NewDispatcher("test")
	require.Panics(t, func() {
		for i := 0; i < QueueDepth+1; i++ {
			d.Enqueue(Event{Opcode: protocol.OpStart, Priority: High})
		}
	})
}
