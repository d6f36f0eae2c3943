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

// Package cmd implements mlagctl, the operator CLI for spec.md §6's RPC
// surface: every subcommand is a thin wrapper around ipc.Call against
// mlagd's Unix socket.
package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/mlagd/ipc"
)

// RootCmd is mlagctl's entry point. Exported so it can be extended
// without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "mlagctl",
	Short: "operator CLI for mlagd, the MLAG control-plane daemon",
}

var sockPath string

func init() {
	RootCmd.PersistentFlags().StringVar(&sockPath, "sock", "/var/run/mlagd.sock", "path to mlagd's RPC socket")
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// call is a thin wrapper shared by every subcommand: it issues the RPC
// and maps a non-OK errno into a fatal CLI error, per spec.md §7's
// "negative errno-like code" response contract.
func call(c ipc.Cmd, payload []byte) []byte {
	errno, resp, err := ipc.Call(sockPath, c, payload)
	if err != nil {
		log.Fatalf("mlagctl: %s: %v", c, err)
	}
	if errno != ipc.OK {
		log.Fatalf("mlagctl: %s: %s", c, errno)
	}
	return resp
}
