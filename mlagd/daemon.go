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

// Package mlagd wires every control-plane component into one running
// daemon, the way fbclock/daemon sits between cmd/fbclock-daemon's thin
// main and the library packages it assembles. cmd/mlagd's main.go only
// parses flags and calls New/Run/Stop; every subsystem wiring decision
// lives here so it can be covered by tests without a real network.
package mlagd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/facebookincubator/mlagd/config"
	"github.com/facebookincubator/mlagd/election"
	"github.com/facebookincubator/mlagd/health"
	"github.com/facebookincubator/mlagd/heartbeat"
	"github.com/facebookincubator/mlagd/ipc"
	"github.com/facebookincubator/mlagd/lacp"
	"github.com/facebookincubator/mlagd/peerchannel"
	"github.com/facebookincubator/mlagd/peerdb"
	"github.com/facebookincubator/mlagd/portmgr"
	"github.com/facebookincubator/mlagd/protocol"
	"github.com/facebookincubator/mlagd/stats"
	"github.com/facebookincubator/mlagd/switchdriver"
	"github.com/facebookincubator/mlagd/syncorch"
	"github.com/facebookincubator/mlagd/vlan"
	log "github.com/sirupsen/logrus"
)

// iplID is the single Inter-Peer Link this daemon manages (spec.md §3:
// "design anticipates 1").
const iplID int32 = 0

// Daemon owns every subsystem and the glue callbacks between them.
type Daemon struct {
	cfg *config.Config

	reg      *stats.Registry
	jsonSrv  *stats.JSONServer
	promExp  *stats.PrometheusExporter
	driver   switchdriver.Driver
	peerDB   *peerdb.PeerDB
	topo     *peerdb.TopologyDB
	hb       *heartbeat.Manager
	healthM  *health.Manager
	election *election.Manager
	lacpDB   *lacp.DB
	vlanAgg  *vlan.Aggregator
	portMgr  *portmgr.Manager
	orch     *syncorch.Orchestrator
	router   *ipc.Router
	rpcSrv   *ipc.Server

	systemID     uint64
	udpConn      *net.UDPConn
	peerSrv      *peerchannel.Server
	mu           sync.Mutex
	peerConn     *peerchannel.Conn
	peerChanStop func()

	// startedAt gates reload_delay: a port reaching PEER_ENABLE within
	// cfg.ReloadDelay of daemon start is held back until the window
	// elapses. Grounded on original_source/src/mlag_conf.c's
	// mlag_reload_delay_set/_get and mlag_events.h's distinct
	// MLAG_PEER_RELOAD_DELAY_EXPIRED event — the original never merges
	// this with the Health FSM's own DOWN_WAIT timer (health_fsm.c's
	// HEALTH_PEER_DOWN_WAIT_TIMER_MS is a separate hard-coded constant),
	// so here it is a one-shot port-enable gate on daemon start, not a
	// per-transition FSM timeout.
	startedAt time.Time

	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs a Daemon and wires its subsystems. systemID identifies
// this chassis in outbound heartbeat packets (typically derived from a
// stable local identifier such as a base MAC).
func New(cfg *config.Config, systemID uint64) (*Daemon, error) {
	d := &Daemon{
		cfg:       cfg,
		reg:       stats.NewRegistry(),
		driver:    switchdriver.NewLoggingDriver(),
		peerDB:    peerdb.NewPeerDB(),
		hb:        heartbeat.NewManager(systemID),
		healthM:   health.NewManager(nil, 0),
		election:  election.NewManager(),
		lacpDB:    lacp.NewDB(),
		orch:      syncorch.NewOrchestrator(cfg.SyncTimeout),
		router:    ipc.NewRouter(),
		systemID:  systemID,
		startedAt: time.Now(),
		stopped:   make(chan struct{}),
	}
	d.topo = peerdb.NewTopologyDB(d.onPeerIPChanged)
	d.vlanAgg = vlan.NewAggregator(cfg.VlanID, 0, d.driver)
	d.portMgr = portmgr.NewManager(d.driver)
	d.jsonSrv = stats.NewJSONServer(d.reg)
	d.promExp = stats.NewPrometheusExporter(d.reg, cfg.MetricsPort+1, 15*time.Second)

	d.wireHeartbeat()
	d.wireHealth()
	d.wireSyncOrch()
	d.wireRPC()

	if err := d.topo.Create(iplID); err != nil {
		return nil, fmt.Errorf("creating ipl %d: %w", iplID, err)
	}
	if err := d.topo.SetVlanID(iplID, cfg.VlanID); err != nil {
		return nil, fmt.Errorf("setting ipl vlan: %w", err)
	}

	return d, nil
}

// peerIdx is the single remote peer's local_index once configured;
// before that, operations addressed to "the peer" are no-ops.
func (d *Daemon) peerIdx() (int32, bool) {
	peers := d.peerDB.All()
	if len(peers) == 0 {
		return 0, false
	}
	return peers[0].LocalIndex, true
}

func (d *Daemon) onPeerIPChanged(iplID int32, oldPeerIP net.IP) {
	if old, ok := d.peerDB.GetByIP(oldPeerIP); ok {
		log.Infof("mlagd: peer ip on ipl %d changed, dropping stale peer %d", iplID, old.LocalIndex)
		d.deletePeer(old.LocalIndex)
	}
}

// ConfigurePeer implements the PEER_ADD bus event (spec.md §6):
// registers the remote chassis and starts monitoring it.
func (d *Daemon) ConfigurePeer(peerIP net.IP) (int32, error) {
	p, err := d.peerDB.Add(peerIP, iplID)
	if err != nil {
		return 0, err
	}
	d.hb.PeerAdd(p.LocalIndex)
	d.healthM.Deliver(p.LocalIndex, health.Event{Kind: health.EvPeerAdd, IPLID: iplID})
	log.Infof("mlagd: peer %s added as local_index=%d", peerIP, p.LocalIndex)
	return p.LocalIndex, nil
}

func (d *Daemon) deletePeer(peerIdx int32) {
	d.hb.PeerRemove(peerIdx)
	d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvPeerDel})
	d.lacpDB.PeerDown(peerIdx)
	d.vlanAgg.SetPeerEnabled(peerIdx, false)
	d.peerDB.Delete(peerIdx)
}

// wireHeartbeat bridges heartbeat UP/DOWN edges into Health FSM events
// and routes outbound keepalive sends to the UDP socket (spec.md §4.2
// register_state_cb / register_send_cb dependency injection).
func (d *Daemon) wireHeartbeat() {
	d.hb.RegisterStateCB(func(peerIdx int32, up bool) {
		kind := health.EvKaDown
		if up {
			kind = health.EvKaUp
		}
		d.healthM.Deliver(peerIdx, health.Event{Kind: kind})
	})
	d.hb.RegisterSendCB(func(peerIdx int32, payload []byte) error {
		d.reg.Inc("tx_heartbeat", 1)
		peer, ok := d.peerDB.Get(peerIdx)
		if !ok {
			return protocol.ErrNoEnt
		}
		d.mu.Lock()
		conn := d.udpConn
		d.mu.Unlock()
		if conn == nil {
			return protocol.ErrIO
		}
		addr := &net.UDPAddr{IP: peer.PeerIPv4, Port: d.cfg.HeartbeatPort}
		_, err := conn.WriteToUDP(payload, addr)
		return err
	})
}

// wireHealth reacts to Health FSM state-entry notifications (spec.md
// §4.3's notify_state_cb), starting sync on PEER_UP and unwinding LACP
// and VLAN state on PEER_DOWN and COMM_DOWN. DOWN_WAIT leaves both as
// they are.
func (d *Daemon) wireHealth() {
	d.healthM.RegisterNotifyCB(func(peerIdx int32, state protocol.HealthPeerState) {
		log.Infof("mlagd: peer %d health -> %s", peerIdx, state)
		d.reg.Inc("rx_notification", 1)
		switch state {
		case protocol.HealthPeerUp:
			go d.orch.Run(context.Background(), peerIdx)
		case protocol.HealthPeerDown, protocol.HealthCommDown:
			d.lacpDB.PeerDown(peerIdx)
			d.vlanAgg.SetPeerEnabled(peerIdx, false)
		}
	})
}

// wireSyncOrch completes the peer_start -> PEER_ENABLE pipeline of
// spec.md §4.6: every subsystem's sync phase runs in parallel, and only
// once all report done does the peer get enabled for VLAN/LACP traffic.
func (d *Daemon) wireSyncOrch() {
	noop := func(ctx context.Context, peerIdx int32) error { return nil }
	d.orch.RegisterSubsystem(protocol.SubsystemPorts, noop)
	d.orch.RegisterSubsystem(protocol.SubsystemMAC, noop)
	d.orch.RegisterSubsystem(protocol.SubsystemLACP, noop)
	d.orch.RegisterSubsystem(protocol.SubsystemL3, noop)

	d.orch.RegisterEnableCB(func(peerIdx int32) {
		log.Infof("mlagd: peer %d reached PEER_ENABLE", peerIdx)
		if remaining := d.cfg.ReloadDelay - time.Since(d.startedAt); remaining > 0 {
			log.Infof("mlagd: peer %d enable held back %s by reload_delay", peerIdx, remaining)
			time.AfterFunc(remaining, func() { d.vlanAgg.SetPeerEnabled(peerIdx, true) })
			return
		}
		d.vlanAgg.SetPeerEnabled(peerIdx, true)
	})
	d.orch.RegisterAbortCB(func(peerIdx int32, err error) {
		log.Warnf("mlagd: peer %d sync aborted: %v; tearing down peer", peerIdx, err)
		d.healthM.Deliver(peerIdx, health.Event{Kind: health.EvPeerDel})
	})
}

// wireRPC registers every command from spec.md §6's RPC surface.
func (d *Daemon) wireRPC() {
	d.router.On(ipc.CmdStart, func(payload []byte) ([]byte, error) {
		d.router.MarkInitialized()
		return nil, nil
	})
	d.router.On(ipc.CmdStop, func(payload []byte) ([]byte, error) {
		go d.Stop()
		return nil, nil
	})
	d.router.On(ipc.CmdCountersGet, func(payload []byte) ([]byte, error) {
		return json.Marshal(d.reg.Snapshot())
	})
	d.router.On(ipc.CmdCountersClear, func(payload []byte) ([]byte, error) {
		d.reg.Reset()
		return nil, nil
	})
	d.router.On(ipc.CmdPeersStateListGet, func(payload []byte) ([]byte, error) {
		type peerState struct {
			LocalIndex int32  `json:"local_index"`
			MlagID     int8   `json:"mlag_id"`
			Health     string `json:"health"`
		}
		var out []peerState
		for _, p := range d.peerDB.All() {
			state, _ := d.healthM.State(p.LocalIndex)
			out = append(out, peerState{LocalIndex: p.LocalIndex, MlagID: int8(p.MlagID), Health: state.String()})
		}
		return json.Marshal(out)
	})
	d.router.On(ipc.CmdLacpSelectionRequest, func(payload []byte) ([]byte, error) {
		var req struct {
			ReqID      uint32 `json:"req_id"`
			PortID     uint32 `json:"port_id"`
			PartnerID  uint64 `json:"partner_id"`
			PartnerKey uint16 `json:"partner_key"`
			Requester  int32  `json:"requester"`
			Force      bool   `json:"force"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		d.lacpDB.SelectionRequest(req.ReqID, req.PortID, req.PartnerID, req.PartnerKey, req.Requester, req.Force)
		return nil, nil
	})
	d.router.On(ipc.CmdPortSet, func(payload []byte) ([]byte, error) {
		var req struct {
			Op     string `json:"op"`
			PortID uint32 `json:"port_id"`
			Mode   string `json:"mode"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		switch req.Op {
		case "ADD":
			mode := portmgr.ModeStatic
			if req.Mode == "LACP" {
				mode = portmgr.ModeLACP
			}
			return nil, d.portMgr.Create(req.PortID, mode)
		case "DELETE":
			// BeginDelete and FinishDelete run back to back: no peer
			// Ack is awaited before the driver destroys the port.
			peerIdx, ok := d.peerIdx()
			var peers []int32
			if ok {
				peers = []int32{peerIdx}
			}
			d.portMgr.BeginDelete(req.PortID, peers)
			return nil, d.portMgr.FinishDelete(req.PortID)
		default:
			return nil, fmt.Errorf("%w: unknown port_set op %q", protocol.ErrInval, req.Op)
		}
	})
	d.router.On(ipc.CmdIplSet, func(payload []byte) ([]byte, error) {
		var req struct {
			Op string `json:"op"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		switch req.Op {
		case "CREATE":
			if err := d.topo.Create(iplID); err != nil {
				return nil, err
			}
			return json.Marshal(struct {
				IplID int32 `json:"ipl_id"`
			}{IplID: iplID})
		case "DELETE":
			for _, p := range d.peerDB.All() {
				d.deletePeer(p.LocalIndex)
			}
			d.topo.Delete(iplID)
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: unknown ipl_set op %q", protocol.ErrInval, req.Op)
		}
	})
	d.router.On(ipc.CmdIplPortSet, func(payload []byte) ([]byte, error) {
		var req struct {
			Ifindex int32 `json:"ifindex"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		return nil, d.topo.BindPort(iplID, req.Ifindex)
	})
	d.router.On(ipc.CmdLacpLocalSysIDSet, func(payload []byte) ([]byte, error) {
		var req struct {
			SystemID uint64 `json:"system_id"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		d.mu.Lock()
		d.systemID = req.SystemID
		d.mu.Unlock()
		d.hb.SetSystemID(req.SystemID)
		return nil, nil
	})
	d.router.On(ipc.CmdLacpActorParametersGet, func(payload []byte) ([]byte, error) {
		d.mu.Lock()
		sysID := d.systemID
		d.mu.Unlock()
		return json.Marshal(struct {
			SystemID uint64 `json:"system_id"`
		}{SystemID: sysID})
	})
	d.router.On(ipc.CmdDump, func(payload []byte) ([]byte, error) {
		type peerDump struct {
			LocalIndex int32  `json:"local_index"`
			MlagID     int8   `json:"mlag_id"`
			Health     string `json:"health"`
		}
		var peers []peerDump
		for _, p := range d.peerDB.All() {
			state, _ := d.healthM.State(p.LocalIndex)
			peers = append(peers, peerDump{LocalIndex: p.LocalIndex, MlagID: int8(p.MlagID), Health: state.String()})
		}
		ipl, _ := d.topo.Get(iplID)
		return json.Marshal(struct {
			Role     string         `json:"role"`
			IPL      peerdb.IPL     `json:"ipl"`
			Peers    []peerDump     `json:"peers"`
			Counters stats.Counters `json:"counters"`
		}{Role: d.election.Current().String(), IPL: ipl, Peers: peers, Counters: d.reg.Snapshot()})
	})
	d.router.On(ipc.CmdReloadDelaySet, func(payload []byte) ([]byte, error) {
		var req struct {
			Seconds uint32 `json:"seconds"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		delay := time.Duration(req.Seconds) * time.Second
		if delay > 300*time.Second {
			return nil, fmt.Errorf("%w: reload_delay must be 0..300s, got %ds", protocol.ErrInval, req.Seconds)
		}
		d.mu.Lock()
		d.cfg.ReloadDelay = delay
		d.startedAt = time.Now()
		d.mu.Unlock()
		return nil, nil
	})
	d.router.On(ipc.CmdReloadDelayGet, func(payload []byte) ([]byte, error) {
		d.mu.Lock()
		delay := d.cfg.ReloadDelay
		d.mu.Unlock()
		return json.Marshal(struct {
			Seconds uint32 `json:"seconds"`
		}{Seconds: uint32(delay / time.Second)})
	})
	d.router.On(ipc.CmdIplIPSet, func(payload []byte) ([]byte, error) {
		var req struct {
			LocalIP string `json:"local_ip"`
			PeerIP  string `json:"peer_ip"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", protocol.ErrInval, err)
		}
		localIP := net.ParseIP(req.LocalIP)
		if localIP == nil || localIP.To4() == nil {
			return nil, fmt.Errorf("%w: local_ip must be IPv4", protocol.ErrAFNoSupport)
		}
		if err := d.topo.SetLocalIP(iplID, localIP); err != nil {
			return nil, err
		}
		if req.PeerIP != "" {
			peerIP := net.ParseIP(req.PeerIP)
			if peerIP == nil || peerIP.To4() == nil {
				return nil, fmt.Errorf("%w: peer_ip must be IPv4", protocol.ErrAFNoSupport)
			}
			if err := d.topo.SetPeerIP(iplID, peerIP); err != nil {
				return nil, err
			}
			if _, err := d.ConfigurePeer(peerIP); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
}

// Run starts every network-facing listener and blocks until ctx is
// canceled, at which point it performs the graceful-stop sequence of
// spec.md §8 scenario 6.
func (d *Daemon) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: d.cfg.HeartbeatPort})
	if err != nil {
		return fmt.Errorf("binding heartbeat udp socket: %w", err)
	}
	d.mu.Lock()
	d.udpConn = conn
	d.mu.Unlock()

	rpcSrv, err := ipc.Listen(d.cfg.RPCSocketPath, d.router)
	if err != nil {
		return fmt.Errorf("starting rpc server: %w", err)
	}
	d.rpcSrv = rpcSrv
	go rpcSrv.Serve()

	go d.jsonSrv.Start(d.cfg.MetricsPort)
	go d.promExp.Start()
	go d.recvLoop(conn)
	go d.tickLoop(ctx)

	<-ctx.Done()
	d.Stop()
	return nil
}

func (d *Daemon) recvLoop(conn *net.UDPConn) {
	buf := make([]byte, protocol.HeartbeatSizeBytes)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		peerIdx, ok := d.peerIdx()
		if !ok {
			continue
		}
		if err := d.hb.Recv(peerIdx, buf[:n]); err != nil {
			d.reg.Inc("decode_errors", 1)
		}
	}
}

func (d *Daemon) tickLoop(ctx context.Context) {
	t := time.NewTicker(d.cfg.KeepaliveInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopped:
			return
		case <-t.C:
			d.hb.Tick()
			if in, ok := d.electionInputs(); ok {
				if res, changed := d.election.Evaluate(in); changed {
					log.Infof("mlagd: role %s -> %s", res.Previous, res.Current)
					go d.managePeerChannel(ctx, res.Current)
				}
			}
		}
	}
}

func (d *Daemon) electionInputs() (election.Inputs, bool) {
	ipl, ok := d.topo.Get(iplID)
	if !ok || ipl.LocalIPv4 == nil {
		return election.Inputs{}, false
	}
	peerIdx, ok := d.peerIdx()
	reachable := false
	if ok {
		if state, _ := d.healthM.State(peerIdx); state == protocol.HealthPeerUp {
			reachable = true
		}
	}
	return election.Inputs{
		LocalIP:    ipl.LocalIPv4,
		PeerIP:     ipl.PeerIPv4,
		Reachable:  reachable,
		MyPeerID:   0,
		PeerPeerID: 1,
	}, true
}

// managePeerChannel (re)establishes the TCP peer channel of spec.md
// §4.5 for the newly-elected role: master binds and accepts, slave
// dials with backoff. Any channel session from a prior role is torn
// down first, since a role flip invalidates the old bind/dial posture.
func (d *Daemon) managePeerChannel(ctx context.Context, role protocol.ElectionRole) {
	d.mu.Lock()
	if d.peerChanStop != nil {
		d.peerChanStop()
	}
	pctx, cancel := context.WithCancel(ctx)
	d.peerChanStop = cancel
	if d.peerConn != nil {
		d.peerConn.Close()
		d.peerConn = nil
	}
	if d.peerSrv != nil {
		d.peerSrv.Close()
		d.peerSrv = nil
	}
	d.mu.Unlock()

	switch role {
	case protocol.RoleMaster:
		d.acceptPeerChannel(pctx)
	case protocol.RoleSlave:
		d.dialPeerChannel(pctx)
	}
}

// acceptPeerChannel runs the master side: bind once, then keep
// accepting a fresh connection whenever the current one drops (spec.md
// §1: one IPL per peer pair, so at most one connection is ever live).
func (d *Daemon) acceptPeerChannel(ctx context.Context) {
	srv, err := peerchannel.Listen(fmt.Sprintf(":%d", d.cfg.ControlPort))
	if err != nil {
		log.Warnf("mlagd: peer channel listen on port %d failed: %v", d.cfg.ControlPort, err)
		return
	}
	d.mu.Lock()
	d.peerSrv = srv
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	for {
		conn, err := srv.Accept()
		if err != nil {
			return
		}
		log.Infof("mlagd: peer channel accepted (peer protocol %s)", conn.PeerVersion)
		d.mu.Lock()
		d.peerConn = conn
		d.mu.Unlock()

		// Block until the connection drops, then accept the next one.
		for {
			if _, err := conn.Recv(); err != nil {
				break
			}
		}
		d.mu.Lock()
		if d.peerConn == conn {
			d.peerConn = nil
		}
		d.mu.Unlock()
	}
}

// dialPeerChannel runs the slave side: reconnect with backoff for as
// long as this role holds or ctx is canceled.
func (d *Daemon) dialPeerChannel(ctx context.Context) {
	for {
		ipl, ok := d.topo.Get(iplID)
		if !ok || ipl.PeerIPv4 == nil {
			return
		}
		addr := fmt.Sprintf("%s:%d", ipl.PeerIPv4, d.cfg.ControlPort)
		conn, err := peerchannel.DialWithBackoff(ctx, addr, d.cfg.KeepaliveInterval)
		if err != nil {
			return
		}
		log.Infof("mlagd: peer channel dialed (peer protocol %s)", conn.PeerVersion)
		d.mu.Lock()
		d.peerConn = conn
		d.mu.Unlock()

		// Block until the connection drops, then redial.
		for {
			if _, err := conn.Recv(); err != nil {
				break
			}
		}
		d.mu.Lock()
		if d.peerConn == conn {
			d.peerConn = nil
		}
		d.mu.Unlock()
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// Stop performs the graceful shutdown of spec.md §8 scenario 6: one last
// heartbeat packet with local_defect=1, peer channel and RPC socket
// closed, every Health FSM returned to IDLE via peer_del, LACP DB
// emptied. Idempotent.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopped)
		for _, p := range d.peerDB.All() {
			d.hb.SetLocalDefect(p.LocalIndex, true)
		}
		d.hb.Tick()

		d.mu.Lock()
		if d.peerChanStop != nil {
			d.peerChanStop()
		}
		if d.udpConn != nil {
			d.udpConn.Close()
		}
		if d.peerConn != nil {
			d.peerConn.Close()
		}
		if d.peerSrv != nil {
			d.peerSrv.Close()
		}
		d.mu.Unlock()

		if d.rpcSrv != nil {
			d.rpcSrv.Close()
		}

		for _, p := range d.peerDB.All() {
			d.deletePeer(p.LocalIndex)
		}
		d.lacpDB.WipeForRoleChange()
		log.Info("mlagd: stopped")
	})
}
