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

// Package election implements spec.md §4.4's Master Election: a
// comparator over the two chassis' IPv4 addresses, the MLAG analogue of
// the teacher's BMCA comparator (sptp/bmc.Dscmp2 picks the better
// Announce by port identity; here there are only two candidates and the
// comparison key is the configured IPv4, so the comparator degenerates
// to a single numeric compare, but the "re-run on every stimulus,
// remember the previous verdict to detect a change" shape is the same).
package election

import (
	"encoding/binary"
	"net"

	"github.com/facebookincubator/mlagd/protocol"
)

// Role mirrors protocol.ElectionRole for local bookkeeping convenience.
type Role = protocol.ElectionRole

// Result is emitted whenever a role decision changes (spec.md §4.4's
// MLAG_MASTER_ELECTION_SWITCH_STATUS_CHANGE_EVENT).
type Result struct {
	Current       Role
	Previous      Role
	MyIP          net.IP
	PeerIP        net.IP
	MyPeerID      int32
	MasterPeerID  int32
}

// Inputs is the election's stimulus snapshot: everything the decision
// in spec.md §4.4 reads.
type Inputs struct {
	LocalIP     net.IP // nil if not yet configured
	PeerIP      net.IP // nil if not yet configured
	Reachable   bool   // heartbeat UP
	MyPeerID    int32
	PeerPeerID  int32
}

func ipv4Uint32(ip net.IP) (uint32, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

// Decide evaluates spec.md §4.4's rule: once both IPs are known and the
// peer is reachable, the numerically smaller IPv4 is MASTER. With a
// configured local IP, a missing peer IP or an unreachable peer gives
// STANDALONE. Without a local IPv4 the role is Unknown (not decidable).
func Decide(in Inputs) Role {
	myN, myOK := ipv4Uint32(in.LocalIP)
	if !myOK {
		return protocol.RoleUnknown
	}
	peerN, peerOK := ipv4Uint32(in.PeerIP)
	if !peerOK || !in.Reachable {
		return protocol.RoleStandalone
	}
	if myN < peerN {
		return protocol.RoleMaster
	}
	return protocol.RoleSlave
}

// MlagID returns the mlag_id spec.md §3 assigns for a decided role:
// master=0, slave=1, otherwise invalid. STANDALONE has no peer to
// synchronize with, so it is also invalid.
func MlagID(r Role) protocol.MlagID {
	switch r {
	case protocol.RoleMaster:
		return protocol.MlagIDMaster
	case protocol.RoleSlave:
		return protocol.MlagIDSlave
	default:
		return protocol.MlagIDInvalid
	}
}

// Manager tracks the last-decided role so callers can detect a change
// and emit Result only on transitions (spec.md §4.4 invariant: "once
// role is decided, it is stable until heartbeat or IP configuration
// changes").
type Manager struct {
	last Role
}

// NewManager starts with an undecided role.
func NewManager() *Manager { return &Manager{last: protocol.RoleUnknown} }

// Evaluate re-runs Decide against in and returns (result, changed).
// result is only meaningful when changed is true.
func (m *Manager) Evaluate(in Inputs) (Result, bool) {
	cur := Decide(in)
	if cur == m.last {
		return Result{}, false
	}
	res := Result{
		Current:      cur,
		Previous:     m.last,
		MyIP:         in.LocalIP,
		PeerIP:       in.PeerIP,
		MyPeerID:     in.MyPeerID,
		MasterPeerID: masterPeerID(cur, in),
	}
	m.last = cur
	return res, true
}

func masterPeerID(r Role, in Inputs) int32 {
	switch r {
	case protocol.RoleMaster:
		return in.MyPeerID
	case protocol.RoleSlave:
		return in.PeerPeerID
	default:
		return -1
	}
}

// Current returns the last-decided role.
func (m *Manager) Current() Role { return m.last }
