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

// Package switchdriver defines the hardware-abstraction trait spec.md
// §1 names as out of scope ("port create/destroy, VLAN membership
// toggling, FDB insertion/flush — a switch-driver trait invoked from
// the core"). Besides the interface, this package holds only the
// logging stand-in (LoggingDriver) and the generated mock; a real
// hardware implementation is outside this repo's scope, same as the teacher treats
// phc/clock hardware access behind an interface its daemons depend on
// without owning.
package switchdriver

// Driver is the trait the port manager and the VLAN aggregator call
// into. Every call is synchronous per spec.md §5 ("the source accepts
// blocking driver calls ... document the longest legal inline
// duration"); callers must not hold the dispatcher past a few
// milliseconds, so a real implementation must bound its own latency.
type Driver interface {
	// PortCreate instantiates port_id in the given mode ("STATIC" or
	// "LACP").
	PortCreate(portID uint32, mode string) error
	// PortDestroy removes port_id. Two-phase per spec.md §4.9 is the
	// caller's (port manager's) responsibility, not the driver's.
	PortDestroy(portID uint32) error

	// VlanAdd adds ifindex as a member of vlanID.
	VlanAdd(vlanID uint16, ifindex int32) error
	// VlanRemove removes ifindex from vlanID.
	VlanRemove(vlanID uint16, ifindex int32) error

	// FDBAdd inserts a MAC/VLAN forwarding entry pointing at ifindex.
	FDBAdd(mac [6]byte, vlanID uint16, ifindex int32) error
	// FDBFlush removes every FDB entry pointing at ifindex.
	FDBFlush(ifindex int32) error
	// FDBGet returns the current FDB snapshot for vlanID.
	FDBGet(vlanID uint16) (map[[6]byte]int32, error)
}
