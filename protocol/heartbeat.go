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

	"github.com/facebookincubator/mlagd/hostendian"
)

// HeartbeatSizeBytes is the fixed wire size of HeartbeatPayload (spec.md §6).
const HeartbeatSizeBytes = 12

// HeartbeatPayload is the UDP keepalive datagram.
//
// SystemID is packed with hostendian.Order, not explicitly swapped: this
// resolves spec.md Open Question 1 in favor of "works only between
// identically-endian peers", matching the source's memcpy behavior. A
// mixed-endian pair will see SystemID as garbage and the Heartbeat FSM
// will treat every packet as a system_id change, i.e. permanently DOWN;
// operators must pair identical-architecture chassis.
type HeartbeatPayload struct {
	SystemID     uint64
	Sequence     uint16
	LocalDefect  uint8
	RemoteDefect uint8
}

// MarshalBinary packs a HeartbeatPayload into exactly HeartbeatSizeBytes.
func (h *HeartbeatPayload) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeartbeatSizeBytes)
	hostendian.Order.PutUint64(buf[0:8], h.SystemID)
	binary.BigEndian.PutUint16(buf[8:10], h.Sequence)
	buf[10] = h.LocalDefect
	buf[11] = h.RemoteDefect
	return buf, nil
}

// UnmarshalBinary unpacks a HeartbeatPayload from exactly HeartbeatSizeBytes.
func (h *HeartbeatPayload) UnmarshalBinary(buf []byte) error {
	if len(buf) != HeartbeatSizeBytes {
		return fmt.Errorf("heartbeat payload must be %d bytes, got %d", HeartbeatSizeBytes, len(buf))
	}
	h.SystemID = hostendian.Order.Uint64(buf[0:8])
	h.Sequence = binary.BigEndian.Uint16(buf[8:10])
	h.LocalDefect = buf[10]
	h.RemoteDefect = buf[11]
	return nil
}
