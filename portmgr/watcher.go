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

// Package portmgr owns MLAG port lifecycle (spec.md §4.9) and the one
// piece of kernel link-state plumbing a control-plane daemon legitimately
// owns: watching the bound IPL interface's oper state over rtnetlink, the
// SPEC_FULL.md DOMAIN STACK row for github.com/jsimonetti/rtnetlink.
package portmgr

import (
	"context"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// LinkStateCB is invoked with the new oper-up/down state whenever the
// watched interface changes. mlagd does not create a Watcher, so these
// changes do not reach the Health FSM's ipl_change (spec.md §4.3).
type LinkStateCB func(ifindex int32, up bool)

// Watcher subscribes to RTM_NEWLINK/RTM_DELLINK notifications for one
// named interface.
type Watcher struct {
	conn  *rtnetlink.Conn
	iface string
	cb    LinkStateCB
}

// NewWatcher dials rtnetlink and joins the link multicast group.
func NewWatcher(iface string, cb LinkStateCB) (*Watcher, error) {
	conn, err := rtnetlink.Dial(&netlink.Config{Groups: unix.RTMGRP_LINK})
	if err != nil {
		return nil, err
	}
	return &Watcher{conn: conn, iface: iface, cb: cb}, nil
}

// CurrentState does a one-shot link list to read the interface's
// present oper state, used on startup before notifications start
// flowing.
func (w *Watcher) CurrentState() (ifindex int32, up bool, err error) {
	links, err := w.conn.Link.List()
	if err != nil {
		return 0, false, err
	}
	for _, l := range links {
		if l.Attributes != nil && l.Attributes.Name == w.iface {
			return int32(l.Index), l.Attributes.OperationalState == rtnetlink.OperStateUp, nil
		}
	}
	return 0, false, nil
}

// Run drains notifications until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		w.conn.Close()
	}()
	for {
		msgs, _, err := w.conn.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnf("portmgr: rtnetlink receive error: %v", err)
			continue
		}
		for _, m := range msgs {
			lm, ok := m.(*rtnetlink.LinkMessage)
			if !ok || lm.Attributes == nil || lm.Attributes.Name != w.iface {
				continue
			}
			up := lm.Attributes.OperationalState == rtnetlink.OperStateUp
			log.Infof("portmgr: %s oper state -> %v", w.iface, up)
			if w.cb != nil {
				w.cb(int32(lm.Index), up)
			}
		}
	}
}

// Close releases the rtnetlink socket.
func (w *Watcher) Close() error { return w.conn.Close() }
