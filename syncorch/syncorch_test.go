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

package syncorch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

func TestRunEnablesOnlyWhenAllSubsystemsDone(t *testing.T) {
	o := NewOrchestrator(time.Second)
	var mu sync.Mutex
	var ran []protocol.Subsystem
	for _, s := range protocol.AllSubsystems {
		s := s
		o.RegisterSubsystem(s, func(ctx context.Context, peerIdx int32) error {
			mu.Lock()
			ran = append(ran, s)
			mu.Unlock()
			return nil
		})
	}

	var enabled int32 = -1
	o.RegisterEnableCB(func(peerIdx int32) { enabled = peerIdx })
	var aborted bool
	o.RegisterAbortCB(func(peerIdx int32, err error) { aborted = true })

	o.Run(context.Background(), 7)

	require.ElementsMatch(t, protocol.AllSubsystems, ran)
	require.Equal(t, int32(7), enabled)
	require.False(t, aborted)
}

func TestRunAbortsOnFirstSubsystemError(t *testing.T) {
	o := NewOrchestrator(time.Second)
	o.RegisterSubsystem(protocol.SubsystemPorts, func(ctx context.Context, peerIdx int32) error {
		return errors.New("port create failed")
	})
	o.RegisterSubsystem(protocol.SubsystemL3, func(ctx context.Context, peerIdx int32) error {
		<-ctx.Done()
		return ctx.Err()
	})

	var abortErr error
	var abortedPeer int32 = -1
	o.RegisterAbortCB(func(peerIdx int32, err error) { abortedPeer = peerIdx; abortErr = err })
	var enabled bool
	o.RegisterEnableCB(func(peerIdx int32) { enabled = true })

	o.Run(context.Background(), 3)

	require.Equal(t, int32(3), abortedPeer)
	require.Error(t, abortErr)
	require.False(t, enabled)
}

func TestRunAbortsOnTimeout(t *testing.T) {
	o := NewOrchestrator(10 * time.Millisecond)
	o.RegisterSubsystem(protocol.SubsystemMAC, func(ctx context.Context, peerIdx int32) error {
		<-ctx.Done()
		return nil
	})

	done := make(chan struct{})
	var aborted bool
	o.RegisterAbortCB(func(peerIdx int32, err error) { aborted = true; close(done) })

	go o.Run(context.Background(), 1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for abort callback")
	}
	require.True(t, aborted)
}
