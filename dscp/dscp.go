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

// Package dscp sets a DSCP/ToS value on an IPv4 socket, so keepalive
// traffic can get priority queuing ahead of the IPL's bulk sync traffic.
// IPv4-only, matching spec.md §1's non-goal of IPv6 support. mlagd does
// not call Enable: neither the heartbeat nor the peer-channel socket is
// marked.
package dscp

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Enable sets the IPv4 TOS byte (DSCP in its upper six bits) on fd, the
// raw socket backing localAddr. dscp is the 6-bit DSCP codepoint;
// IP_TOS expects it shifted into the top bits of the ToS byte.
func Enable(fd int, localAddr net.IP, dscp int) error {
	if localAddr.To4() == nil {
		return fmt.Errorf("dscp: %s is not an IPv4 address", localAddr)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, dscp<<2); err != nil {
		return fmt.Errorf("setting IP_TOS on fd %d: %w", fd, err)
	}
	return nil
}

// ConnFd extracts the raw file descriptor backing a UDP connection so
// Enable (and any other syscall-level tuning) can operate on it.
func ConnFd(conn *net.UDPConn) (int, error) {
	sc, err := conn.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	if err := sc.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, err
	}
	return fd, nil
}
