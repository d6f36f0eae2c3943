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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryIncAndSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Inc("rx_heartbeat", 3)
	r.Inc("tx_heartbeat", 1)
	r.Inc("unknown_counter", 99)

	snap := r.Snapshot()
	require.Equal(t, uint64(3), snap.RxHeartbeat)
	require.Equal(t, uint64(1), snap.TxHeartbeat)
	require.Equal(t, uint64(3), r.Get("rx_heartbeat"))
}

func TestRegistryResetZeroesAll(t *testing.T) {
	r := NewRegistry()
	for _, n := range Names() {
		r.Inc(n, 5)
	}
	r.Reset()
	snap := r.Snapshot()
	for _, n := range Names() {
		require.Equal(t, uint64(0), *ptrFor(&snap, n))
	}
}

func TestNamesCoversEveryCounterField(t *testing.T) {
	require.Len(t, Names(), 14)
}
