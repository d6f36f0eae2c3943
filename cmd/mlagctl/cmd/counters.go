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
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/mlagd/ipc"
)

var clearCounters bool

func init() {
	countersCmd.Flags().BoolVar(&clearCounters, "clear", false, "clear all counters instead of printing them")
	RootCmd.AddCommand(countersCmd)
}

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "print or clear mlagd's spec.md §3 counter set",
	Run: func(cmd *cobra.Command, args []string) {
		if clearCounters {
			call(ipc.CmdCountersClear, nil)
			log.Info("counters cleared")
			return
		}

		resp := call(ipc.CmdCountersGet, nil)
		var counters map[string]uint64
		if err := json.Unmarshal(resp, &counters); err != nil {
			log.Fatalf("mlagctl: decoding counters_get response: %v", err)
		}

		names := make([]string, 0, len(counters))
		for name := range counters {
			names = append(names, name)
		}
		sort.Strings(names)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"counter", "value"})
		for _, name := range names {
			table.Append([]string{name, strconv.FormatUint(counters[name], 10)})
		}
		table.Render()
	},
}
