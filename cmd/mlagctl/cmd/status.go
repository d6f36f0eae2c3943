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
	"os"
	"strconv"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/mlagd/ipc"
)

func init() {
	RootCmd.AddCommand(statusCmd)
}

type peerStatus struct {
	LocalIndex int32  `json:"local_index"`
	MlagID     int8   `json:"mlag_id"`
	Health     string `json:"health"`
}

func healthString(h string) string {
	switch h {
	case "PEER_UP":
		return color.GreenString(h)
	case "PEER_DOWN", "COMM_DOWN":
		return color.RedString(h)
	case "DOWN_WAIT":
		return color.YellowString(h)
	default:
		return h
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "list every configured peer and its Health FSM state",
	Run: func(cmd *cobra.Command, args []string) {
		resp := call(ipc.CmdPeersStateListGet, nil)
		var peers []peerStatus
		if err := json.Unmarshal(resp, &peers); err != nil {
			log.Fatalf("mlagctl: decoding peers_state_list_get response: %v", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"local_index", "mlag_id", "health"})
		for _, p := range peers {
			table.Append([]string{
				strconv.Itoa(int(p.LocalIndex)),
				strconv.Itoa(int(p.MlagID)),
				healthString(p.Health),
			})
		}
		table.Render()
	},
}
