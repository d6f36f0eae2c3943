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

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Each peer-bound event below owns a static network-order hook
// (MarshalBinary/UnmarshalBinary) so the peer channel stays a thin framer
// (spec.md §4.1, §4.5): it never needs to know event-specific layout.

// SyncStart is sent slave->master to begin a subsystem's two-phase sync.
type SyncStart struct {
	Subsystem Subsystem
	MyPeerID  int32
}

// MarshalBinary packs SyncStart.
func (e *SyncStart) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 5)
	buf[0] = byte(e.Subsystem)
	binary.BigEndian.PutUint32(buf[1:5], uint32(e.MyPeerID))
	return buf, nil
}

// UnmarshalBinary unpacks SyncStart.
func (e *SyncStart) UnmarshalBinary(buf []byte) error {
	if len(buf) != 5 {
		return fmt.Errorf("SyncStart must be 5 bytes, got %d", len(buf))
	}
	e.Subsystem = Subsystem(buf[0])
	e.MyPeerID = int32(binary.BigEndian.Uint32(buf[1:5]))
	return nil
}

// MasterSyncDone carries the master's state snapshot for one subsystem.
// The snapshot bytes are opaque to the peer channel; each subsystem's
// sync phase owns its own snapshot encoding.
type MasterSyncDone struct {
	Subsystem Subsystem
	Snapshot  []byte
}

// MarshalBinary packs MasterSyncDone.
func (e *MasterSyncDone) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 1+len(e.Snapshot))
	buf[0] = byte(e.Subsystem)
	copy(buf[1:], e.Snapshot)
	return buf, nil
}

// UnmarshalBinary unpacks MasterSyncDone.
func (e *MasterSyncDone) UnmarshalBinary(buf []byte) error {
	if len(buf) < 1 {
		return fmt.Errorf("MasterSyncDone must be at least 1 byte")
	}
	e.Subsystem = Subsystem(buf[0])
	e.Snapshot = append([]byte(nil), buf[1:]...)
	return nil
}

// SyncFinish is sent slave->master once the slave has applied a snapshot.
type SyncFinish struct {
	Subsystem Subsystem
}

// MarshalBinary packs SyncFinish.
func (e *SyncFinish) MarshalBinary() ([]byte, error) {
	return []byte{byte(e.Subsystem)}, nil
}

// UnmarshalBinary unpacks SyncFinish.
func (e *SyncFinish) UnmarshalBinary(buf []byte) error {
	if len(buf) != 1 {
		return fmt.Errorf("SyncFinish must be 1 byte, got %d", len(buf))
	}
	e.Subsystem = Subsystem(buf[0])
	return nil
}

// VlanState is one (vlan_id, up|down) tuple in a batched diff.
type VlanState struct {
	VlanID uint16
	State  OperState
}

// VlanStateChange is VLAN_LOCAL or VLAN_GLOBAL_STATE_CHANGE, a batched
// diff list touching only VLANs actually changed (spec.md §4.8).
type VlanStateChange struct {
	PeerID int32
	States []VlanState
}

// MarshalBinary packs VlanStateChange.
func (e *VlanStateChange) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4+2+3*len(e.States))
	binary.BigEndian.PutUint32(buf[0:4], uint32(e.PeerID))
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(e.States)))
	off := 6
	for _, st := range e.States {
		binary.BigEndian.PutUint16(buf[off:off+2], st.VlanID)
		buf[off+2] = byte(st.State)
		off += 3
	}
	return buf, nil
}

// UnmarshalBinary unpacks VlanStateChange.
func (e *VlanStateChange) UnmarshalBinary(buf []byte) error {
	if len(buf) < 6 {
		return fmt.Errorf("VlanStateChange must be at least 6 bytes, got %d", len(buf))
	}
	e.PeerID = int32(binary.BigEndian.Uint32(buf[0:4]))
	cnt := binary.BigEndian.Uint16(buf[4:6])
	if len(buf) != 6+3*int(cnt) {
		return fmt.Errorf("VlanStateChange length mismatch for cnt=%d: got %d bytes", cnt, len(buf))
	}
	e.States = make([]VlanState, cnt)
	off := 6
	for i := range e.States {
		e.States[i] = VlanState{
			VlanID: binary.BigEndian.Uint16(buf[off : off+2]),
			State:  OperState(buf[off+2]),
		}
		off += 3
	}
	return nil
}

// LACPSelectionEvent is the peer-bound LACP_SELECTION_EVENT: either a
// forwarded request (slave->master) or a response/notification
// (master->slave), disambiguated by IsResponse.
type LACPSelectionEvent struct {
	IsResponse     bool
	Response       LACPResponse
	Force          bool
	Select         bool
	MlagID         MlagID
	ReqID          uint32
	PortID         uint32
	PartnerID      uint64
	PartnerKey     uint16
}

// MarshalBinary packs LACPSelectionEvent.
func (e *LACPSelectionEvent) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 1+1+1+1+1+4+4+8+2)
	off := 0
	putBool := func(b bool) {
		if b {
			buf[off] = 1
		}
		off++
	}
	putBool(e.IsResponse)
	buf[off] = byte(e.Response)
	off++
	putBool(e.Force)
	putBool(e.Select)
	buf[off] = byte(e.MlagID)
	off++
	binary.BigEndian.PutUint32(buf[off:off+4], e.ReqID)
	off += 4
	binary.BigEndian.PutUint32(buf[off:off+4], e.PortID)
	off += 4
	binary.BigEndian.PutUint64(buf[off:off+8], e.PartnerID)
	off += 8
	binary.BigEndian.PutUint16(buf[off:off+2], e.PartnerKey)
	return buf, nil
}

// UnmarshalBinary unpacks LACPSelectionEvent.
func (e *LACPSelectionEvent) UnmarshalBinary(buf []byte) error {
	const want = 1 + 1 + 1 + 1 + 1 + 4 + 4 + 8 + 2
	if len(buf) != want {
		return fmt.Errorf("LACPSelectionEvent must be %d bytes, got %d", want, len(buf))
	}
	off := 0
	e.IsResponse = buf[off] != 0
	off++
	e.Response = LACPResponse(buf[off])
	off++
	e.Force = buf[off] != 0
	off++
	e.Select = buf[off] != 0
	off++
	e.MlagID = MlagID(buf[off])
	off++
	e.ReqID = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	e.PortID = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	e.PartnerID = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	e.PartnerKey = binary.BigEndian.Uint16(buf[off : off+2])
	return nil
}

// LACPReleaseEvent notifies a peer that it must release a port's
// selection because the arbiter ejected it (force override) or the
// entry emptied out.
type LACPReleaseEvent struct {
	PortID uint32
}

// MarshalBinary packs LACPReleaseEvent.
func (e *LACPReleaseEvent) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, e.PortID)
	return buf, nil
}

// UnmarshalBinary unpacks LACPReleaseEvent.
func (e *LACPReleaseEvent) UnmarshalBinary(buf []byte) error {
	if len(buf) != 4 {
		return fmt.Errorf("LACPReleaseEvent must be 4 bytes, got %d", len(buf))
	}
	e.PortID = binary.BigEndian.Uint32(buf)
	return nil
}
