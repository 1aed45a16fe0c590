// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding_test

import (
	"testing"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/core/sharding"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpaqueSharding(t *testing.T) {
	s := must.M1(sharding.NewOpaqueSharding(devices.FromIDs(0, 1, 1), devices.DefaultMemory))
	assert.Equal(t, sharding.KindOpaque, s.Kind())
	assert.Equal(t, 3, s.Devices().Len())
	assert.False(t, s.IsFullyReplicated())
	assert.Contains(t, s.String(), "OpaqueSharding(devices: [device#0, device#1, device#1]")

	shape := shapes.Make(8)
	_, err := s.Disassemble(shape)
	require.ErrorIs(t, err, sharding.ErrUnsupported)
	_, err = s.DisassembleDynamic(shapes.ToDynamic(shape))
	require.ErrorIs(t, err, sharding.ErrUnsupported)
	_, err = s.IndexDomains(shape)
	require.ErrorIs(t, err, sharding.ErrUnsupported)
	_, err = s.ShardShape(shape)
	require.ErrorIs(t, err, sharding.ErrUnsupported)
	assert.NotErrorIs(t, err, sharding.ErrInvalidArgument)

	moved := must.M1(s.WithDevices(devices.FromIDs(4, 5, 6)))
	assert.Equal(t, []devices.ID{4, 5, 6}, moved.Devices().IDs())
	assert.False(t, moved.Equal(s))
	assert.True(t, s.Equal(must.M1(sharding.NewOpaqueSharding(devices.FromIDs(0, 1, 1), devices.DefaultMemory))))

	_, err = sharding.NewOpaqueSharding(devices.NewList(), devices.DefaultMemory)
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)
}
