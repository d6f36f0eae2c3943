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

package peerdb

import (
	"net"
	"testing"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

func TestPeerDBAddDuplicateIP(t *testing.T) {
	db := NewPeerDB()
	ip := net.ParseIP("10.0.0.2")
	_, err := db.Add(ip, 0)
	require.NoError(t, err)
	_, err = db.Add(ip, 0)
	require.ErrorIs(t, err, protocol.ErrInval)
}

func TestPeerDBStableLocalIndex(t *testing.T) {
	db := NewPeerDB()
	a, err := db.Add(net.ParseIP("10.0.0.2"), 0)
	require.NoError(t, err)
	require.Equal(t, int32(0), a.LocalIndex)

	b, err := db.Add(net.ParseIP("10.0.0.3"), 0)
	require.NoError(t, err)
	require.Equal(t, int32(1), b.LocalIndex)

	db.Delete(a.LocalIndex)
	_, ok := db.Get(a.LocalIndex)
	require.False(t, ok)

	got, ok := db.Get(b.LocalIndex)
	require.True(t, ok)
	require.Equal(t, int32(1), got.LocalIndex)
}

func TestTopologyDBMaxIPLs(t *testing.T) {
	db := NewTopologyDB(nil)
	require.NoError(t, db.Create(0))
	require.ErrorIs(t, db.Create(1), protocol.ErrNoSpc)
}

func TestTopologyDBSetPeerIPTriggersCallback(t *testing.T) {
	var gotIPL int32 = -1
	var gotOld net.IP
	db := NewTopologyDB(func(iplID int32, old net.IP) {
		gotIPL = iplID
		gotOld = old
	})
	require.NoError(t, db.Create(0))
	require.NoError(t, db.SetPeerIP(0, net.ParseIP("10.0.0.2")))
	require.Equal(t, int32(-1), gotIPL, "first set must not fire the callback")

	require.NoError(t, db.SetPeerIP(0, net.ParseIP("10.0.0.3")))
	require.Equal(t, int32(0), gotIPL)
	require.True(t, gotOld.Equal(net.ParseIP("10.0.0.2")))
}
