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

package peerchannel

import (
	"context"
	"testing"
	"time"

	"github.com/facebookincubator/mlagd/protocol"
	"github.com/stretchr/testify/require"
)

func TestServerAcceptAndDialHandshake(t *testing.T) {
	s, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer s.Close()

	addr := s.ln.Addr().String()

	type result struct {
		c   *Conn
		err error
	}
	serverCh := make(chan result, 1)
	go func() {
		c, err := s.Accept()
		serverCh <- result{c, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	clientConn, err := DialWithBackoff(ctx, addr, time.Second)
	require.NoError(t, err)
	defer clientConn.Close()

	r := <-serverCh
	require.NoError(t, r.err)
	defer r.c.Close()

	require.Equal(t, ProtocolVersion, clientConn.PeerVersion.String())
	require.Equal(t, ProtocolVersion, r.c.PeerVersion.String())
}

func TestSendRecvRoundTrip(t *testing.T) {
	s, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer s.Close()

	serverCh := make(chan *Conn, 1)
	go func() {
		c, _ := s.Accept()
		serverCh <- c
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := DialWithBackoff(ctx, s.ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer client.Close()
	server := <-serverCh
	defer server.Close()

	require.NoError(t, client.Send(protocol.Frame{Opcode: protocol.OpPeerAdd, Payload: []byte("hi")}, time.Second))
	f, err := server.Recv()
	require.NoError(t, err)
	require.Equal(t, protocol.OpPeerAdd, f.Opcode)
	require.Equal(t, []byte("hi"), f.Payload)
}

func TestDialWithBackoffRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := DialWithBackoff(ctx, "127.0.0.1:1", time.Second)
	require.Error(t, err)
}
