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
	portID   uint32
	portMode string
)

func init() {
	portAddCmd.Flags().Uint32Var(&portID, "port-id", 0, "ifindex of the port")
	portAddCmd.Flags().StringVar(&portMode, "mode", "STATIC", "aggregation mode: STATIC or LACP")
	if err := portAddCmd.MarkFlagRequired("port-id"); err != nil {
		log.Fatal(err)
	}

	portDeleteCmd.Flags().Uint32Var(&portID, "port-id", 0, "ifindex of the port")
	if err := portDeleteCmd.MarkFlagRequired("port-id"); err != nil {
		log.Fatal(err)
	}

	portCmd.AddCommand(portAddCmd)
	portCmd.AddCommand(portDeleteCmd)
	RootCmd.AddCommand(portCmd)
}

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "manage MLAG port membership (spec.md §6 port_set)",
}

var portAddCmd = &cobra.Command{
	Use:   "add",
	Short: "create a port in the requested aggregation mode",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			Op     string `json:"op"`
			PortID uint32 `json:"port_id"`
			Mode   string `json:"mode"`
		}{Op: "ADD", PortID: portID, Mode: portMode})
		call(ipc.CmdPortSet, req)
		log.Infof("port %d created (%s)", portID, portMode)
	},
}

var portDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "drain and delete a port",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			Op     string `json:"op"`
			PortID uint32 `json:"port_id"`
		}{Op: "DELETE", PortID: portID})
		call(ipc.CmdPortSet, req)
		log.Infof("port %d deleted", portID)
	},
}
