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

var reloadDelaySeconds uint32

func init() {
	reloadDelaySetCmd.Flags().Uint32Var(&reloadDelaySeconds, "seconds", 0, "reload_delay in seconds (0..300)")

	reloadDelayCmd.AddCommand(reloadDelaySetCmd)
	reloadDelayCmd.AddCommand(reloadDelayGetCmd)
	RootCmd.AddCommand(reloadDelayCmd)
}

var reloadDelayCmd = &cobra.Command{
	Use:   "reload-delay",
	Short: "manage the port-enable reload delay (spec.md §9 Open Question 3)",
}

var reloadDelaySetCmd = &cobra.Command{
	Use:   "set",
	Short: "set reload_delay and re-arm the post-start port-enable gate",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			Seconds uint32 `json:"seconds"`
		}{Seconds: reloadDelaySeconds})
		call(ipc.CmdReloadDelaySet, req)
		log.Infof("reload_delay set to %ds", reloadDelaySeconds)
	},
}

var reloadDelayGetCmd = &cobra.Command{
	Use:   "get",
	Short: "print the configured reload_delay",
	Run: func(cmd *cobra.Command, args []string) {
		resp := call(ipc.CmdReloadDelayGet, nil)
		var out struct {
			Seconds uint32 `json:"seconds"`
		}
		if err := json.Unmarshal(resp, &out); err != nil {
			log.Fatalf("mlagctl: decoding reload_delay_get response: %v", err)
		}
		log.Infof("reload_delay=%ds", out.Seconds)
	},
}
