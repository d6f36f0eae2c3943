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

// Package health implements the per-peer Health FSM of spec.md §4.3: a
// pure transition function plus a thin executor, replacing the source's
// macro-generated FSM with global static tables (spec.md §9 design
// notes). Timers are first-class actions scheduled through an injected
// Scheduler so tests never need a real clock.
package health

import "github.com/facebookincubator/mlagd/protocol"

// EventKind enumerates the Health FSM's input alphabet (spec.md §4.3).
type EventKind uint8

// EventKind values.
const (
	EvPeerAdd EventKind = iota
	EvPeerDel
	EvKaUp
	EvKaDown
	EvMgmtUp
	EvMgmtDown
	EvIplChange
	EvRoleChange
	EvTimerExpire
)

// Event is one Health FSM input. IPLID is only meaningful for EvPeerAdd;
// IplUp is only meaningful for EvIplChange.
type Event struct {
	Kind  EventKind
	IPLID int32
	IplUp bool
}

// Context is the guard state read by the transition function: the
// composite condition R = ka==UP && ipl==UP && mgmt==UP (spec.md §4.3).
type Context struct {
	Ka   bool
	Ipl  bool
	Mgmt bool
}

func (c Context) reachable() bool { return c.Ka && c.Ipl && c.Mgmt }

// ActionKind enumerates what the executor must do after a step.
type ActionKind uint8

// ActionKind values.
const (
	ActionNotify ActionKind = iota
	ActionScheduleDownWaitTimer
	ActionCancelDownWaitTimer
)

// Action is one unit of executor work emitted by step.
type Action struct {
	Kind  ActionKind
	State protocol.HealthPeerState // valid for ActionNotify
}

// step is the pure transition function: given the current state, the
// event, and the (possibly just-mutated-by-this-event) guard context, it
// returns the next state and the ordered actions the executor must run.
// This is the table from spec.md §4.3 written as code instead of data.
func step(state protocol.HealthPeerState, ctx *Context, ev Event) (protocol.HealthPeerState, []Action) {
	switch ev.Kind {
	case EvPeerAdd:
		if state == protocol.HealthIdle {
			ctx.Ka = false
			return protocol.HealthPeerDown, nil
		}
		return state, nil

	case EvPeerDel:
		// "any | peer_del | -> IDLE | on_peer_del" (spec.md §4.3 last
		// row). No ActionNotify here: original_source/health_manager.c's
		// health_manager_stop nulls notify_state_cb before driving
		// peer_del_ev/peer_add_ev and restores it only after, so the
		// reset's intermediate PEER_DOWN is never observed downstream
		// (Open Question 2 — see DESIGN.md for the source citations).
		var actions []Action
		if state == protocol.HealthDownWait {
			actions = append(actions, Action{Kind: ActionCancelDownWaitTimer})
		}
		*ctx = Context{}
		return protocol.HealthIdle, actions

	case EvKaUp:
		ctx.Ka = true
		switch state {
		case protocol.HealthPeerDown:
			if ctx.reachable() {
				return protocol.HealthPeerUp, []Action{{Kind: ActionNotify, State: protocol.HealthPeerUp}}
			}
			return protocol.HealthPeerDown, nil
		case protocol.HealthDownWait:
			if ctx.Ipl {
				return protocol.HealthPeerUp, []Action{
					{Kind: ActionCancelDownWaitTimer},
					{Kind: ActionNotify, State: protocol.HealthCommDown},
					{Kind: ActionNotify, State: protocol.HealthPeerUp},
				}
			}
			return protocol.HealthDownWait, nil
		case protocol.HealthCommDown:
			if ctx.reachable() {
				return protocol.HealthPeerUp, []Action{{Kind: ActionNotify, State: protocol.HealthPeerUp}}
			}
			return protocol.HealthCommDown, nil
		default:
			return state, nil
		}

	case EvKaDown:
		ctx.Ka = false
		if state == protocol.HealthPeerUp {
			if !ctx.Mgmt {
				return protocol.HealthPeerDown, []Action{{Kind: ActionNotify, State: protocol.HealthPeerDown}}
			}
			return protocol.HealthDownWait, []Action{
				{Kind: ActionScheduleDownWaitTimer},
				{Kind: ActionNotify, State: protocol.HealthDownWait},
			}
		}
		return state, nil

	case EvMgmtUp:
		ctx.Mgmt = true
		switch state {
		case protocol.HealthPeerDown, protocol.HealthCommDown:
			if ctx.reachable() {
				return protocol.HealthPeerUp, []Action{{Kind: ActionNotify, State: protocol.HealthPeerUp}}
			}
			return state, nil
		default:
			return state, nil
		}

	case EvMgmtDown:
		ctx.Mgmt = false
		switch state {
		case protocol.HealthDownWait:
			return protocol.HealthPeerDown, []Action{
				{Kind: ActionCancelDownWaitTimer},
				{Kind: ActionNotify, State: protocol.HealthPeerDown},
			}
		case protocol.HealthCommDown:
			return protocol.HealthPeerDown, []Action{{Kind: ActionNotify, State: protocol.HealthPeerDown}}
		default:
			return state, nil
		}

	case EvIplChange:
		ctx.Ipl = ev.IplUp
		switch state {
		case protocol.HealthPeerDown:
			if ctx.reachable() {
				return protocol.HealthPeerUp, []Action{{Kind: ActionNotify, State: protocol.HealthPeerUp}}
			}
			return protocol.HealthPeerDown, nil
		case protocol.HealthPeerUp:
			if !ev.IplUp {
				if !ctx.Mgmt {
					return protocol.HealthPeerDown, []Action{{Kind: ActionNotify, State: protocol.HealthPeerDown}}
				}
				return protocol.HealthDownWait, []Action{
					{Kind: ActionScheduleDownWaitTimer},
					{Kind: ActionNotify, State: protocol.HealthDownWait},
				}
			}
			return protocol.HealthPeerUp, nil
		case protocol.HealthDownWait:
			if ev.IplUp && ctx.Ka {
				// spec.md §8 scenario 3 (an IPL flap inside the
				// reload-delay window) requires returning straight to
				// PEER_UP without surfacing COMM_DOWN — unlike the
				// ka_up-driven recovery below, the link itself never
				// stopped carrying keepalives long enough to be
				// considered a communications loss. See DESIGN.md.
				return protocol.HealthPeerUp, []Action{
					{Kind: ActionCancelDownWaitTimer},
					{Kind: ActionNotify, State: protocol.HealthPeerUp},
				}
			}
			return protocol.HealthDownWait, nil
		default:
			return state, nil
		}

	case EvRoleChange:
		if state == protocol.HealthPeerDown {
			return protocol.HealthPeerDown, []Action{{Kind: ActionNotify, State: protocol.HealthPeerDown}}
		}
		return state, nil

	case EvTimerExpire:
		if state == protocol.HealthDownWait {
			return protocol.HealthCommDown, []Action{{Kind: ActionNotify, State: protocol.HealthCommDown}}
		}
		return state, nil
	}
	return state, nil
}
