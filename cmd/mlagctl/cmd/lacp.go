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

var lacpSystemID uint64

func init() {
	lacpLocalSysIDSetCmd.Flags().Uint64Var(&lacpSystemID, "system-id", 0, "LACP actor system ID to advertise")
	if err := lacpLocalSysIDSetCmd.MarkFlagRequired("system-id"); err != nil {
		log.Fatal(err)
	}

	lacpCmd.AddCommand(lacpLocalSysIDSetCmd)
	lacpCmd.AddCommand(lacpActorParametersGetCmd)
	RootCmd.AddCommand(lacpCmd)
}

var lacpCmd = &cobra.Command{
	Use:   "lacp",
	Short: "manage the LACP actor identity (spec.md §6 lacp_* commands)",
}

var lacpLocalSysIDSetCmd = &cobra.Command{
	Use:   "local-sys-id-set",
	Short: "set the local LACP actor system ID (spec.md §6 lacp_local_sys_id_set)",
	Run: func(cmd *cobra.Command, args []string) {
		req, _ := json.Marshal(struct {
			SystemID uint64 `json:"system_id"`
		}{SystemID: lacpSystemID})
		call(ipc.CmdLacpLocalSysIDSet, req)
		log.Infof("lacp actor system id set to %d", lacpSystemID)
	},
}

var lacpActorParametersGetCmd = &cobra.Command{
	Use:   "actor-parameters-get",
	Short: "print the local LACP actor parameters (spec.md §6 lacp_actor_parameters_get)",
	Run: func(cmd *cobra.Command, args []string) {
		resp := call(ipc.CmdLacpActorParametersGet, nil)
		var params struct {
			SystemID uint64 `json:"system_id"`
		}
		if err := json.Unmarshal(resp, &params); err != nil {
			log.Fatalf("mlagctl: decoding lacp_actor_parameters_get response: %v", err)
		}
		log.Infof("system_id=%d", params.SystemID)
	},
}
