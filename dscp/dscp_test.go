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

package dscp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnableDSCPOnIPv4Socket(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer conn.Close()

	fd, err := ConnFd(conn)
	require.NoError(t, err)
	require.NoError(t, Enable(fd, net.ParseIP("127.0.0.1"), 42))
}

func TestEnableRejectsIPv6Address(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("::1"), Port: 0})
	require.NoError(t, err)
	defer conn.Close()

	fd, err := ConnFd(conn)
	require.NoError(t, err)
	err = Enable(fd, net.ParseIP("::1"), 42)
	require.Error(t, err)
}
