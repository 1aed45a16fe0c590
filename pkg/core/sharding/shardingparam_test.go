// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding_test

import (
	"testing"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/sharding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func param(dimShards, permutation, axisSizes []int) sharding.ShardingParam {
	return sharding.ShardingParam{
		DimShards:    dimShards,
		MinorToMajor: sharding.MinorToMajor{Permutation: permutation, AxisSizes: axisSizes},
	}
}

func TestShardingParamVerify(t *testing.T) {
	testCases := []struct {
		name  string
		param sharding.ShardingParam
		ok    bool
	}{
		{"tiled", param([]int{2, 3}, []int{1, 0}, []int{2, 3}), true},
		{"replicated", param([]int{1}, []int{0}, []int{2}), true},
		{"partially replicated", param([]int{2, 1}, []int{0, 1}, []int{2, 2}), true},
		{"scalar", param([]int{}, []int{}, []int{}), true},
		{"zero shards", param([]int{0}, []int{0}, []int{2}), false},
		{"negative shards", param([]int{-2}, []int{0}, []int{2}), false},
		{"permutation length", param([]int{2}, []int{0, 1}, []int{2}), false},
		{"zero axis size", param([]int{1}, []int{0}, []int{0}), false},
		{"permutation out of range", param([]int{2}, []int{1}, []int{2}), false},
		{"duplicated permutation", param([]int{4}, []int{0, 0}, []int{2, 2}), false},
		{"devices not multiple of tiles", param([]int{2}, []int{0}, []int{3}), false},
		{"more tiles than devices", param([]int{4}, []int{0}, []int{2}), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.param.Verify()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, sharding.ErrInvalidArgument)
			}
		})
	}
}

func TestShardingParamVerifyOverflow(t *testing.T) {
	// The product of these dim_shards is 1 modulo 2^64.
	wrapping := []int{1<<32 + 1, 1<<32 - 1, 1<<32 + 1, 1<<32 - 1}
	p := param(wrapping, []int{0}, []int{1})
	require.ErrorIs(t, p.Verify(), sharding.ErrInvalidArgument)
	_, err := sharding.NewShardingParamSharding(p, devices.Range(1), devices.DefaultMemory)
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)

	p = param([]int{1}, []int{0, 1}, []int{1 << 62, 4})
	require.ErrorIs(t, p.Verify(), sharding.ErrInvalidArgument)

	// Large, but fitting an int.
	p = param([]int{1 << 31}, []int{0, 1}, []int{1 << 31, 2})
	require.NoError(t, p.Verify())
	assert.Equal(t, 2, p.ReplicationFactor())
}

func TestShardingParamDeviceOrder(t *testing.T) {
	p := param([]int{2, 3}, []int{1, 0}, []int{2, 3})
	assert.Equal(t, 6, p.NumDevices())
	assert.Equal(t, 6, p.NumTiles())
	assert.Equal(t, 1, p.ReplicationFactor())
	assert.Equal(t, 2, p.Rank())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, p.DeviceOrder())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, p.TileOfDevices())

	p = param([]int{2, 3}, []int{0, 1}, []int{2, 3})
	assert.Equal(t, []int{0, 3, 1, 4, 2, 5}, p.DeviceOrder())
	assert.Equal(t, []int{0, 2, 4, 1, 3, 5}, p.TileOfDevices())

	// Replication is minor: consecutive positions of the order share a tile.
	p = param([]int{2}, []int{0, 1}, []int{2, 2})
	assert.Equal(t, 2, p.ReplicationFactor())
	assert.Equal(t, []int{0, 2, 1, 3}, p.DeviceOrder())
	assert.Equal(t, []int{0, 1, 0, 1}, p.TileOfDevices())

	p = param([]int{}, []int{}, []int{})
	assert.Equal(t, 1, p.NumDevices())
	assert.Equal(t, []int{0}, p.DeviceOrder())
}

func TestShardingParamEqualCloneString(t *testing.T) {
	p := param([]int{2, 3}, []int{1, 0}, []int{2, 3})
	assert.Equal(t, "{[2 3] to [1 0] on [2 3]}", p.String())
	clone := p.Clone()
	assert.True(t, p.Equal(clone))
	clone.DimShards[0] = 3
	assert.False(t, p.Equal(clone))
	assert.Equal(t, 2, p.DimShards[0])
	assert.False(t, p.Equal(param([]int{2, 3}, []int{0, 1}, []int{2, 3})))
}
