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

// Package ipc implements the Unix-socket RPC surface of spec.md §6: a
// thin length-prefixed command/response layer whose commands marshal
// into the same bus events the core already handles. Only the event
// shapes are specified; this package owns framing, dispatch, and the
// errno-like response codes of spec.md §7.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/facebookincubator/mlagd/protocol"
	log "github.com/sirupsen/logrus"
)

// Errno mirrors the negative errno-like codes spec.md §7 requires every
// RPC to return. Values match the real Linux errno numbers so a CLI can
// render them the way strerror would.
type Errno int32

// Errno values used by the RPC surface.
const (
	OK             Errno = 0
	EPERM          Errno = -1
	ENOENT         Errno = -2
	EIO            Errno = -5
	ENOSPC         Errno = -28
	EINVAL         Errno = -22
	EAFNOSUPPORT   Errno = -97
)

// String renders an Errno the way strerror would, for CLI output.
func (e Errno) String() string {
	switch e {
	case OK:
		return "OK"
	case EPERM:
		return "EPERM: operation not permitted"
	case ENOENT:
		return "ENOENT: no such peer or entity"
	case EIO:
		return "EIO: I/O error"
	case ENOSPC:
		return "ENOSPC: no space left"
	case EINVAL:
		return "EINVAL: invalid argument"
	case EAFNOSUPPORT:
		return "EAFNOSUPPORT: address family not supported"
	default:
		return fmt.Sprintf("errno %d", int32(e))
	}
}

// errnoFor maps the protocol error taxonomy onto the wire errno.
func errnoFor(err error) Errno {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, protocol.ErrInval):
		return EINVAL
	case errors.Is(err, protocol.ErrIO):
		return EIO
	case errors.Is(err, protocol.ErrPerm):
		return EPERM
	case errors.Is(err, protocol.ErrNoEnt):
		return ENOENT
	case errors.Is(err, protocol.ErrAFNoSupport):
		return EAFNOSUPPORT
	case errors.Is(err, protocol.ErrNoSpc):
		return ENOSPC
	default:
		return EIO
	}
}

// RPC command opcodes, one per spec.md §6's listed surface. These are a
// distinct u16 space from protocol.Opcode's bus opcodes, even though a
// handler typically turns around and enqueues the matching bus event.
type Cmd uint16

// Command opcodes, dense allocation matching spec.md §6's listed order.
const (
	CmdStart Cmd = iota + 1
	CmdStop
	CmdPortSet
	CmdIplSet
	CmdIplPortSet
	CmdIplIPSet
	CmdPeersStateListGet
	CmdCountersGet
	CmdCountersClear
	CmdLacpLocalSysIDSet
	CmdLacpActorParametersGet
	CmdLacpSelectionRequest
	CmdDump
	CmdReloadDelaySet
	CmdReloadDelayGet
)

func (c Cmd) String() string {
	switch c {
	case CmdStart:
		return "start"
	case CmdStop:
		return "stop"
	case CmdPortSet:
		return "port_set"
	case CmdIplSet:
		return "ipl_set"
	case CmdIplPortSet:
		return "ipl_port_set"
	case CmdIplIPSet:
		return "ipl_ip_set"
	case CmdPeersStateListGet:
		return "peers_state_list_get"
	case CmdCountersGet:
		return "counters_get"
	case CmdCountersClear:
		return "counters_clear"
	case CmdLacpLocalSysIDSet:
		return "lacp_local_sys_id_set"
	case CmdLacpActorParametersGet:
		return "lacp_actor_parameters_get"
	case CmdLacpSelectionRequest:
		return "lacp_selection_request"
	case CmdDump:
		return "dump"
	case CmdReloadDelaySet:
		return "reload_delay_set"
	case CmdReloadDelayGet:
		return "reload_delay_get"
	default:
		return "unknown"
	}
}

// Handler executes one RPC command against its subsystem, returning a
// JSON-able response payload or an error from the protocol error
// taxonomy (spec.md §7).
type Handler func(payload []byte) ([]byte, error)

// Router holds one Handler per command opcode. mlagd wires each
// subsystem's commands in during startup (mlagd.Daemon's wireRPC).
type Router struct {
	mu       sync.RWMutex
	handlers map[Cmd]Handler
	initDone bool
}

// NewRouter returns an empty router. initDone gates every command except
// CmdStart behind the "MLAG not initialized" -EPERM precondition of
// spec.md §7, modeling the typed-handle pattern from spec.md §9 ("replace
// process-wide init-done flag by a typed handle returned from
// mlag_init") with a single boolean since this router itself is only
// constructed after mlag_init would have run.
func NewRouter() *Router {
	return &Router{handlers: make(map[Cmd]Handler)}
}

// On registers the handler for a command opcode.
func (r *Router) On(c Cmd, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[c] = h
}

// MarkInitialized flips the init-done gate; call once mlag_init's
// equivalent startup has completed.
func (r *Router) MarkInitialized() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initDone = true
}

// Dispatch runs the handler for c, enforcing the init-done precondition
// for every command except start itself.
func (r *Router) Dispatch(c Cmd, payload []byte) ([]byte, error) {
	r.mu.RLock()
	h, ok := r.handlers[c]
	initDone := r.initDone
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no handler for command %s", protocol.ErrNoEnt, c)
	}
	if !initDone && c != CmdStart {
		return nil, fmt.Errorf("%w: mlag not initialized", protocol.ErrPerm)
	}
	return h(payload)
}

// Server accepts RPC connections on a Unix socket and dispatches one
// command/response exchange per frame.
type Server struct {
	ln     net.Listener
	router *Router

	mu     sync.Mutex
	closed bool
}

// Listen creates (replacing any stale prior socket file) and binds the
// RPC Unix socket at path.
func Listen(path string, router *Router) (*Server, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale rpc socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on rpc socket %s: %w", path, err)
	}
	return &Server{ln: ln, router: router}, nil
}

// Serve accepts connections until Close is called. Each connection is
// handled on its own goroutine; spec.md §1 describes the RPC layer as
// thin, so one frame's worth of work per round-trip is expected to be
// quick — slow commands are the subsystem's problem, not the framer's.
func (s *Server) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return
			}
			log.Errorf("ipc: accept failed: %v", err)
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		f, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		resp, handlerErr := s.router.Dispatch(Cmd(f.Opcode), f.Payload)
		out := encodeResponse(errnoFor(handlerErr), resp)
		if err := protocol.WriteFrame(conn, protocol.Frame{Opcode: f.Opcode, Payload: out}); err != nil {
			log.Warnf("ipc: writing response for %s failed: %v", Cmd(f.Opcode), err)
			return
		}
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.ln.Close()
}

// encodeResponse packs errno:i32-be followed by the handler's raw
// payload (empty on error).
func encodeResponse(errno Errno, payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(int32(errno)))
	copy(out[4:], payload)
	return out
}

// DecodeResponse splits a response frame's payload back into errno and
// body, the client-side counterpart to encodeResponse.
func DecodeResponse(payload []byte) (Errno, []byte, error) {
	if len(payload) < 4 {
		return 0, nil, fmt.Errorf("response payload too short: %d bytes", len(payload))
	}
	errno := Errno(int32(binary.BigEndian.Uint32(payload[0:4])))
	return errno, payload[4:], nil
}

// Call is a convenience client: dial path, send one command, read the
// matching response, and close.
func Call(path string, c Cmd, payload []byte) (Errno, []byte, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return 0, nil, fmt.Errorf("dialing rpc socket %s: %w", path, err)
	}
	defer conn.Close()

	if err := protocol.WriteFrame(conn, protocol.Frame{Opcode: protocol.Opcode(c), Payload: payload}); err != nil {
		return 0, nil, fmt.Errorf("writing rpc command %s: %w", c, err)
	}
	f, err := protocol.ReadFrame(conn)
	if err != nil {
		return 0, nil, fmt.Errorf("reading rpc response for %s: %w", c, err)
	}
	return DecodeResponse(f.Payload)
}
