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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/mlagd/ipc"
)

func init() {
	RootCmd.AddCommand(startCmd)
	RootCmd.AddCommand(stopCmd)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "mark mlagd initialized, enabling every other RPC command",
	Run: func(cmd *cobra.Command, args []string) {
		call(ipc.CmdStart, nil)
		log.Info("mlagd started")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "gracefully stop mlagd (spec.md §8 scenario 6)",
	Run: func(cmd *cobra.Command, args []string) {
		call(ipc.CmdStop, nil)
		log.Info("mlagd stopping")
	},
}
