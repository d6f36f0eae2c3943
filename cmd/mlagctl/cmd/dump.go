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
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/mlagd/ipc"
)

func init() {
	RootCmd.AddCommand(dumpCmd)
}

var dumpCmd = &cobra.Command{
	Use:   "dump [path]",
	Short: "write mlagd's full internal state to path, or stdout if omitted (spec.md §6 dump)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp := call(ipc.CmdDump, nil)
		if len(args) == 0 {
			os.Stdout.Write(append(resp, '\n'))
			return
		}
		if err := os.WriteFile(args[0], resp, 0o644); err != nil {
			log.Fatalf("mlagctl: writing dump to %s: %v", args[0], err)
		}
		log.Infof("state dumped to %s", args[0])
	},
}
