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

package switchdriver

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// LoggingDriver is a Driver that only logs and keeps an in-memory FDB
// table, standing in for the real hardware collaborator spec.md §1
// places out of scope. mlagd.New always wires this in, so the
// daemon's control-plane logic is exercisable without real switch ASIC
// access, the same role a "null" or "sim" backend plays in the
// teacher's drain/stats collaborator seams.
type LoggingDriver struct {
	mu  sync.Mutex
	fdb map[uint16]map[[6]byte]int32
}

// NewLoggingDriver returns a ready-to-use LoggingDriver.
func NewLoggingDriver() *LoggingDriver {
	return &LoggingDriver{fdb: make(map[uint16]map[[6]byte]int32)}
}

// PortCreate logs the request.
func (d *LoggingDriver) PortCreate(portID uint32, mode string) error {
	log.Infof("switchdriver: port_create port=%d mode=%s", portID, mode)
	return nil
}

// PortDestroy logs the request.
func (d *LoggingDriver) PortDestroy(portID uint32) error {
	log.Infof("switchdriver: port_destroy port=%d", portID)
	return nil
}

// VlanAdd logs the request.
func (d *LoggingDriver) VlanAdd(vlanID uint16, ifindex int32) error {
	log.Infof("switchdriver: vlan_add vlan=%d ifindex=%d", vlanID, ifindex)
	return nil
}

// VlanRemove logs the request.
func (d *LoggingDriver) VlanRemove(vlanID uint16, ifindex int32) error {
	log.Infof("switchdriver: vlan_remove vlan=%d ifindex=%d", vlanID, ifindex)
	return nil
}

// FDBAdd records mac/vlan/ifindex in the in-memory table.
func (d *LoggingDriver) FDBAdd(mac [6]byte, vlanID uint16, ifindex int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, ok := d.fdb[vlanID]
	if !ok {
		entries = make(map[[6]byte]int32)
		d.fdb[vlanID] = entries
	}
	entries[mac] = ifindex
	log.Debugf("switchdriver: fdb_add vlan=%d ifindex=%d", vlanID, ifindex)
	return nil
}

// FDBFlush removes every entry pointing at ifindex.
func (d *LoggingDriver) FDBFlush(ifindex int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for vlanID, entries := range d.fdb {
		for mac, idx := range entries {
			if idx == ifindex {
				delete(entries, mac)
			}
		}
		if len(entries) == 0 {
			delete(d.fdb, vlanID)
		}
	}
	log.Infof("switchdriver: fdb_flush ifindex=%d", ifindex)
	return nil
}

// FDBGet returns a copy of vlanID's current entries.
func (d *LoggingDriver) FDBGet(vlanID uint16) (map[[6]byte]int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[[6]byte]int32, len(d.fdb[vlanID]))
	for mac, idx := range d.fdb[vlanID] {
		out[mac] = idx
	}
	return out, nil
}
