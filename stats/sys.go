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

package stats

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// SysStats collects process-level CPU/RSS figures, grounded on
// sptp/client/sysstats.go's gopsutil usage (SPEC_FULL.md DOMAIN STACK
// "Glue" row). mlagd does not call it: neither dump nor counters_get
// includes these values.
type SysStats struct{}

// Collect gathers process uptime, CPU percent, and RSS/VMS.
func (SysStats) Collect() (map[string]uint64, error) {
	out := make(map[string]uint64)
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	out["process.alive_since"] = uint64(procStartTime.Unix())
	out["process.uptime"] = uint64(time.Since(procStartTime).Seconds())

	if pct, err := proc.Percent(0); err == nil {
		out["process.cpu_permil"] = uint64(pct * 10)
	}
	if mem, err := proc.MemoryInfo(); err == nil {
		out["process.rss"] = mem.RSS
		out["process.vms"] = mem.VMS
	}
	if nfd, err := proc.NumFDs(); err == nil {
		out["process.num_fds"] = uint64(nfd)
	}
	return out, nil
}
