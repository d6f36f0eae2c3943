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

package portmgr

import (
	"testing"

	"github.com/facebookincubator/mlagd/switchdriver"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCreateCallsDriver(t *testing.T) {
	ctrl := gomock.NewController(t)
	drv := switchdriver.NewMockDriver(ctrl)
	drv.EXPECT().PortCreate(uint32(42), "LACP").Return(nil)

	m := NewManager(drv)
	require.NoError(t, m.Create(42, ModeLACP))
	p, ok := m.Get(42)
	require.True(t, ok)
	require.Equal(t, ModeLACP, p.Mode)
}

func TestGlobalStateRecomputesOnOperChange(t *testing.T) {
	ctrl := gomock.NewController(t)
	drv := switchdriver.NewMockDriver(ctrl)
	drv.EXPECT().PortCreate(uint32(1), "STATIC").Return(nil)

	var states []GlobalState
	m := NewManager(drv)
	m.RegisterStateChangeCB(func(_ uint32, s GlobalState) { states = append(states, s) })
	require.NoError(t, m.Create(1, ModeStatic))

	m.SetLocalOperState(1, true)
	m.SetRemoteOperState(1, true)
	require.Equal(t, []GlobalState{ActivePartial, ActiveFull}, states)
}

func TestTwoPhaseDeleteWaitsForAllAcks(t *testing.T) {
	ctrl := gomock.NewController(t)
	drv := switchdriver.NewMockDriver(ctrl)
	drv.EXPECT().PortCreate(uint32(1), "STATIC").Return(nil)
	drv.EXPECT().PortDestroy(uint32(1)).Return(nil)

	m := NewManager(drv)
	require.NoError(t, m.Create(1, ModeStatic))

	m.BeginDelete(1, []int32{0, 1})
	require.False(t, m.Ack(1, 0))
	require.True(t, m.Ack(1, 1))

	require.NoError(t, m.FinishDelete(1))
	_, ok := m.Get(1)
	require.False(t, ok)
}
