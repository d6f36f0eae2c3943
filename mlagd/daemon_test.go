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

package mlagd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/facebookincubator/mlagd/config"
	"github.com/facebookincubator/mlagd/health"
	"github.com/facebookincubator/mlagd/ipc"
	"github.com/facebookincubator/mlagd/peerchannel"
	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.VlanID = 100
	cfg.KeepaliveInterval = time.Second
	cfg.SyncTimeout = time.Second
	return &cfg
}

func TestNewWiresSubsystemsAndCreatesIpl(t *testing.T) {
	d, err := New(testConfig(), 0xdeadbeef)
	require.NoError(t, err)
	require.NotNil(t, d.topo)

	ipl, ok := d.topo.Get(iplID)
	require.True(t, ok)
	require.Equal(t, uint16(100), ipl.VlanID)
}

func TestConfigurePeerRegistersHeartbeatAndHealth(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)

	peerIdx, err := d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)

	state, ok := d.healthM.State(peerIdx)
	require.True(t, ok)
	require.Equal(t, protocol.HealthPeerDown, state)

	_, ok = d.hb.Counters(peerIdx)
	require.True(t, ok, "peer must have a heartbeat monitoring slot")
}

func TestHealthPeerUpDrivesSyncOrchestratorToEnableVlan(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)

	enabled := make(chan int32, 1)
	d.orch.RegisterEnableCB(func(peerIdx int32) {
		d.vlanAgg.SetPeerEnabled(peerIdx, true)
		enabled <- peerIdx
	})

	peerIdx, err := d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)

	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvKaUp})
	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvMgmtUp})
	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvIplChange, IplUp: true})

	select {
	case got := <-enabled:
		require.Equal(t, peerIdx, got)
		require.True(t, d.vlanAgg.PeerEnabled(peerIdx))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for peer enable callback")
	}
}

func TestCountersRPCRoundTripsThroughRouter(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = d.router.Dispatch(ipc.CmdStart, nil)
	require.NoError(t, err)

	d.reg.Inc("tx_heartbeat", 3)
	payload, err := d.router.Dispatch(ipc.CmdCountersGet, nil)
	require.NoError(t, err)

	var counters struct {
		TxHeartbeat uint64 `json:"TxHeartbeat"`
	}
	require.NoError(t, json.Unmarshal(payload, &counters))
	require.Equal(t, uint64(3), counters.TxHeartbeat)

	_, err = d.router.Dispatch(ipc.CmdCountersClear, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(0), d.reg.Get("tx_heartbeat"))
}

func TestIplPortSetBindsIfindex(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)
	d.router.MarkInitialized()

	req, _ := json.Marshal(struct {
		Ifindex int32 `json:"ifindex"`
	}{Ifindex: 7})
	_, err = d.router.Dispatch(ipc.CmdIplPortSet, req)
	require.NoError(t, err)

	ipl, ok := d.topo.Get(iplID)
	require.True(t, ok)
	require.Equal(t, int32(7), ipl.BoundPortIfindex)
}

func TestIplSetDeleteDropsConfiguredPeer(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)
	d.router.MarkInitialized()

	peerIdx, err := d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)

	req, _ := json.Marshal(struct {
		Op string `json:"op"`
	}{Op: "DELETE"})
	_, err = d.router.Dispatch(ipc.CmdIplSet, req)
	require.NoError(t, err)

	_, ok := d.healthM.State(peerIdx)
	require.False(t, ok)
	_, ok = d.topo.Get(iplID)
	require.False(t, ok)
}

func TestLacpLocalSysIDSetUpdatesActorParametersAndHeartbeats(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)
	d.router.MarkInitialized()

	req, _ := json.Marshal(struct {
		SystemID uint64 `json:"system_id"`
	}{SystemID: 99})
	_, err = d.router.Dispatch(ipc.CmdLacpLocalSysIDSet, req)
	require.NoError(t, err)

	payload, err := d.router.Dispatch(ipc.CmdLacpActorParametersGet, nil)
	require.NoError(t, err)
	var params struct {
		SystemID uint64 `json:"system_id"`
	}
	require.NoError(t, json.Unmarshal(payload, &params))
	require.Equal(t, uint64(99), params.SystemID)

	_, err = d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)
	var advertised []uint64
	d.hb.RegisterSendCB(func(_ int32, payload []byte) error {
		hb := protocol.HeartbeatPayload{}
		require.NoError(t, hb.UnmarshalBinary(payload))
		advertised = append(advertised, hb.SystemID)
		return nil
	})
	d.hb.Tick()
	require.Equal(t, []uint64{99}, advertised)
}

func TestDumpReportsRoleAndPeers(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)
	d.router.MarkInitialized()

	_, err = d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)

	payload, err := d.router.Dispatch(ipc.CmdDump, nil)
	require.NoError(t, err)

	var out struct {
		Role  string `json:"role"`
		Peers []struct {
			LocalIndex int32 `json:"local_index"`
		} `json:"peers"`
	}
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Equal(t, "UNKNOWN", out.Role)
	require.Len(t, out.Peers, 1)
}

func TestReloadDelayGetSetRoundTrips(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)
	d.router.MarkInitialized()

	req, _ := json.Marshal(struct {
		Seconds uint32 `json:"seconds"`
	}{Seconds: 45})
	_, err = d.router.Dispatch(ipc.CmdReloadDelaySet, req)
	require.NoError(t, err)

	payload, err := d.router.Dispatch(ipc.CmdReloadDelayGet, nil)
	require.NoError(t, err)
	var out struct {
		Seconds uint32 `json:"seconds"`
	}
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Equal(t, uint32(45), out.Seconds)
}

func TestReloadDelayHoldsBackEnableUntilWindowElapses(t *testing.T) {
	cfg := testConfig()
	cfg.ReloadDelay = 200 * time.Millisecond
	d, err := New(cfg, 1)
	require.NoError(t, err)

	peerIdx, err := d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)

	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvKaUp})
	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvMgmtUp})
	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvIplChange, IplUp: true})

	require.Never(t, func() bool {
		return d.vlanAgg.PeerEnabled(peerIdx)
	}, 100*time.Millisecond, 10*time.Millisecond, "reload_delay must hold the port disabled")

	require.Eventually(t, func() bool {
		return d.vlanAgg.PeerEnabled(peerIdx)
	}, 2*time.Second, 20*time.Millisecond, "port must enable once reload_delay elapses")
}

func TestManagePeerChannelMasterAcceptsConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := testConfig()
	cfg.ControlPort = port
	d, err := New(cfg, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.managePeerChannel(ctx, protocol.RoleMaster)

	var dialed *peerchannel.Conn
	require.Eventually(t, func() bool {
		nc, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 50*time.Millisecond)
		if err != nil {
			return false
		}
		c, err := peerchannel.Handshake(nc)
		if err != nil {
			return false
		}
		dialed = c
		return true
	}, 2*time.Second, 20*time.Millisecond)
	defer dialed.Close()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.peerConn != nil
	}, time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotentAndSetsLocalDefect(t *testing.T) {
	d, err := New(testConfig(), 1)
	require.NoError(t, err)

	_, err = d.ConfigurePeer(net.ParseIP("10.0.0.2"))
	require.NoError(t, err)

	var sent []protocol.HeartbeatPayload
	d.hb.RegisterSendCB(func(_ int32, payload []byte) error {
		hb := protocol.HeartbeatPayload{}
		require.NoError(t, hb.UnmarshalBinary(payload))
		sent = append(sent, hb)
		return nil
	})

	d.Stop()
	d.Stop() // must not panic or double-close

	require.Len(t, sent, 1)
	require.Equal(t, uint8(1), sent[0].LocalDefect)
}
