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

package switchdriver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var _ Driver = (*LoggingDriver)(nil)

func TestLoggingDriverFDBAddAndGet(t *testing.T) {
	d := NewLoggingDriver()
	mac := [6]byte{0, 1, 2, 3, 4, 5}
	require.NoError(t, d.FDBAdd(mac, 10, 5))

	got, err := d.FDBGet(10)
	require.NoError(t, err)
	require.Equal(t, int32(5), got[mac])
}

func TestLoggingDriverFDBFlushRemovesOnlyMatchingIfindex(t *testing.T) {
	d := NewLoggingDriver()
	macA := [6]byte{0, 0, 0, 0, 0, 1}
	macB := [6]byte{0, 0, 0, 0, 0, 2}
	require.NoError(t, d.FDBAdd(macA, 10, 5))
	require.NoError(t, d.FDBAdd(macB, 10, 6))

	require.NoError(t, d.FDBFlush(5))

	got, err := d.FDBGet(10)
	require.NoError(t, err)
	require.NotContains(t, got, macA)
	require.Contains(t, got, macB)
}
