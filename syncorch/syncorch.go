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

// Package syncorch implements the sync orchestrator of spec.md §4.6: once
// a peer's Health FSM reaches peer_start, the four subsystems (ports, L3,
// MAC, LACP) run their SYNC_START exchange in parallel, and the peer only
// reaches PEER_ENABLE once every subsystem reports SYNC_DONE.
package syncorch

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/mlagd/protocol"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds how long the orchestrator waits for every
// subsystem to report SYNC_DONE before aborting the peer (spec.md §4.6).
const DefaultTimeout = 15 * time.Second

// SyncFunc runs one subsystem's SYNC_START exchange for peerIdx to
// completion, returning once that subsystem has reached SYNC_DONE or the
// context is canceled.
type SyncFunc func(ctx context.Context, peerIdx int32) error

// AbortCB fires when the sync fan-out fails or times out; the caller is
// expected to drive the equivalent of Health's peer_del for peerIdx
// (spec.md §4.6: "timeout aborts that peer").
type AbortCB func(peerIdx int32, err error)

// EnableCB fires once every subsystem has reported SYNC_DONE, the signal
// that lets Health move the peer to PEER_ENABLE.
type EnableCB func(peerIdx int32)

// Orchestrator fans SYNC_START out to the four subsystems registered by
// RegisterSubsystem and collects the first error or the full SYNC_DONE set.
type Orchestrator struct {
	timeout time.Duration
	funcs   map[protocol.Subsystem]SyncFunc

	onAbort  AbortCB
	onEnable EnableCB
}

// NewOrchestrator builds an orchestrator with the given overall deadline.
func NewOrchestrator(timeout time.Duration) *Orchestrator {
	return &Orchestrator{timeout: timeout, funcs: make(map[protocol.Subsystem]SyncFunc)}
}

// RegisterSubsystem wires one of protocol.AllSubsystems' sync phases.
func (o *Orchestrator) RegisterSubsystem(s protocol.Subsystem, fn SyncFunc) {
	o.funcs[s] = fn
}

// RegisterAbortCB sets the peer-abort hook.
func (o *Orchestrator) RegisterAbortCB(cb AbortCB) { o.onAbort = cb }

// RegisterEnableCB sets the peer-enable hook.
func (o *Orchestrator) RegisterEnableCB(cb EnableCB) { o.onEnable = cb }

// Run fans SYNC_START for peerIdx out to every registered subsystem in
// parallel via errgroup, replacing the teacher's ad hoc sync.WaitGroup +
// "first goroutine to finish wins" polling with explicit group
// cancellation: the first subsystem error cancels the shared context so
// the others stop promptly instead of running to their own timeout.
func (o *Orchestrator) Run(parent context.Context, peerIdx int32) {
	ctx, cancel := context.WithTimeout(parent, o.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range protocol.AllSubsystems {
		fn, ok := o.funcs[s]
		if !ok {
			continue
		}
		subsystem, syncFn := s, fn
		g.Go(func() error {
			if err := syncFn(gctx, peerIdx); err != nil {
				return fmt.Errorf("subsystem %s: %w", subsystem, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Errorf("syncorch: peer %d sync fan-out failed: %v", peerIdx, err)
		if o.onAbort != nil {
			o.onAbort(peerIdx, err)
		}
		return
	}
	if ctx.Err() != nil {
		log.Errorf("syncorch: peer %d sync fan-out timed out after %s", peerIdx, o.timeout)
		if o.onAbort != nil {
			o.onAbort(peerIdx, ctx.Err())
		}
		return
	}
	if o.onEnable != nil {
		o.onEnable(peerIdx)
	}
}
