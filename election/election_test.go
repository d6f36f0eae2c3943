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

package election

import (
	"net"
	"testing"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

func TestDecideSmallerIPBecomesMaster(t *testing.T) {
	in := Inputs{LocalIP: net.ParseIP("10.0.0.1"), PeerIP: net.ParseIP("10.0.0.2"), Reachable: true}
	require.Equal(t, protocol.RoleMaster, Decide(in))

	in.LocalIP, in.PeerIP = in.PeerIP, in.LocalIP
	require.Equal(t, protocol.RoleSlave, Decide(in))
}

func TestDecideUnreachablePeerIsStandalone(t *testing.T) {
	in := Inputs{LocalIP: net.ParseIP("10.0.0.1"), PeerIP: net.ParseIP("10.0.0.2"), Reachable: false}
	require.Equal(t, protocol.RoleStandalone, Decide(in))
}

func TestDecideUnconfiguredLocalIPIsUnknown(t *testing.T) {
	in := Inputs{PeerIP: net.ParseIP("10.0.0.2"), Reachable: true}
	require.Equal(t, protocol.RoleUnknown, Decide(in))
}

func TestMlagIDMapping(t *testing.T) {
	require.Equal(t, protocol.MlagIDMaster, MlagID(protocol.RoleMaster))
	require.Equal(t, protocol.MlagIDSlave, MlagID(protocol.RoleSlave))
	require.Equal(t, protocol.MlagIDInvalid, MlagID(protocol.RoleStandalone))
	require.Equal(t, protocol.MlagIDInvalid, MlagID(protocol.RoleUnknown))
}

func TestManagerOnlyEmitsOnRoleChange(t *testing.T) {
	m := NewManager()
	in := Inputs{LocalIP: net.ParseIP("10.0.0.1"), PeerIP: net.ParseIP("10.0.0.2"), Reachable: true, MyPeerID: 0, PeerPeerID: 1}

	res, changed := m.Evaluate(in)
	require.True(t, changed)
	require.Equal(t, protocol.RoleMaster, res.Current)
	require.Equal(t, protocol.RoleUnknown, res.Previous)
	require.Equal(t, int32(0), res.MasterPeerID)

	_, changed = m.Evaluate(in)
	require.False(t, changed, "stable role must not re-emit")
}

func TestManagerDetectsFlipToSlave(t *testing.T) {
	m := NewManager()
	in := Inputs{LocalIP: net.ParseIP("10.0.0.9"), PeerIP: net.ParseIP("10.0.0.2"), Reachable: true, MyPeerID: 0, PeerPeerID: 1}
	m.Evaluate(in)
	require.Equal(t, protocol.RoleSlave, m.Current())

	res, changed := m.Evaluate(Inputs{Reachable: false})
	require.True(t, changed)
	require.Equal(t, protocol.RoleUnknown, res.Current)
}
