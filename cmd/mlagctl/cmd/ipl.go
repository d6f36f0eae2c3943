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

package cmd

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/mlagd/ipc"
)

var (
	iplLocalIP string
	iplPeerIP  string
	iplIfindex uint32
)

func init() {
	iplIPSetCmd.Flags().StringVar(&iplLocalIP, "local-ip", "", "this chassis' IPL-facing IPv4 address")
	iplIPSetCmd.Flags().StringVar(&iplPeerIP, "peer-ip", "", "remote chassis' IPL-facing IPv4 address")
	if err := iplIPSetCmd.MarkFlagRequired("local-ip"); err != nil {
		log.Fatal(err)
	}

	iplPortSetCmd.Flags().Uint32Var(&iplIfindex, "ifindex", 0, "ifindex of the physical port backing the IPL")
	if err := iplPortSetCmd.MarkFlagRequired("ifindex"); err != nil {
		log.Fatal(err)
	}

	iplCmd.AddCommand(iplSetCmd)
	iplCmd.AddCommand(iplDeleteCmd)
	iplCmd.AddCommand(iplPortSetCmd)
	iplCmd.AddCommand(iplIPSetCmd)
	RootCmd.AddCommand(iplCmd)
}

var iplCmd = &cobra.Command{
	Use:   "ipl",
	Short: "manage the Inter-Peer Link (spec.md §6 ipl_* commands)",
}

var iplSetCmd = &cobra.Command{
	Use:   "create",
	Short: "create the IPL (spec.md §6 ipl_set CREATE)",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			Op string `json:"op"`
		}{Op: "CREATE"})
		call(ipc.CmdIplSet, req)
		log.Info("ipl created")
	},
}

var iplDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "delete the IPL and drop any configured peer (spec.md §6 ipl_set DELETE)",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			Op string `json:"op"`
		}{Op: "DELETE"})
		call(ipc.CmdIplSet, req)
		log.Info("ipl deleted")
	},
}

var iplPortSetCmd = &cobra.Command{
	Use:   "port-set",
	Short: "bind the IPL to a physical port (spec.md §6 ipl_port_set)",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			Ifindex uint32 `json:"ifindex"`
		}{Ifindex: iplIfindex})
		call(ipc.CmdIplPortSet, req)
		log.Infof("ipl bound to ifindex %d", iplIfindex)
	},
}

var iplIPSetCmd = &cobra.Command{
	Use:   "ip-set",
	Short: "configure the IPL's local/peer IPv4 addresses (spec.md §6 ipl_ip_set)",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			LocalIP string `json:"local_ip"`
			PeerIP  string `json:"peer_ip"`
		}{LocalIP: iplLocalIP, PeerIP: iplPeerIP})
		call(ipc.CmdIplIPSet, req)
		log.Info("ipl addresses configured")
	},
}
