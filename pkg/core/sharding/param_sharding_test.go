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

func TestShardingParamShardingIndexDomains(t *testing.T) {
	testCases := []struct {
		name  string
		param sharding.ShardingParam
		shape []int
		want  []shapes.IndexDomain
	}{
		{
			name:  "fully replicated",
			param: param([]int{1}, []int{0}, []int{2}),
			shape: []int{8},
			want: []shapes.IndexDomain{
				domain([]int{0}, 8),
				domain([]int{0}, 8),
			},
		},
		{
			name:  "row-major devices",
			param: param([]int{2, 3}, []int{1, 0}, []int{2, 3}),
			shape: []int{4, 6},
			want: []shapes.IndexDomain{
				domain([]int{0, 0}, 2, 2),
				domain([]int{0, 2}, 2, 2),
				domain([]int{0, 4}, 2, 2),
				domain([]int{2, 0}, 2, 2),
				domain([]int{2, 2}, 2, 2),
				domain([]int{2, 4}, 2, 2),
			},
		},
		{
			name:  "transposed devices",
			param: param([]int{2, 3}, []int{0, 1}, []int{2, 3}),
			shape: []int{4, 6},
			want: []shapes.IndexDomain{
				domain([]int{0, 0}, 2, 2),
				domain([]int{0, 4}, 2, 2),
				domain([]int{2, 2}, 2, 2),
				domain([]int{0, 2}, 2, 2),
				domain([]int{2, 0}, 2, 2),
				domain([]int{2, 4}, 2, 2),
			},
		},
		{
			name:  "partially replicated",
			param: param([]int{2, 1}, []int{0}, []int{4}),
			shape: []int{8, 6},
			want: []shapes.IndexDomain{
				domain([]int{0, 0}, 4, 6),
				domain([]int{0, 0}, 4, 6),
				domain([]int{4, 0}, 4, 6),
				domain([]int{4, 0}, 4, 6),
			},
		},
		{
			name:  "replicated over the major mesh axis",
			param: param([]int{2}, []int{0, 1}, []int{2, 2}),
			shape: []int{6},
			want: []shapes.IndexDomain{
				domain([]int{0}, 3),
				domain([]int{3}, 3),
				domain([]int{0}, 3),
				domain([]int{3}, 3),
			},
		},
		{
			name:  "uneven",
			param: param([]int{4}, []int{0}, []int{4}),
			shape: []int{5},
			want: []shapes.IndexDomain{
				domain([]int{0}, 2),
				domain([]int{2}, 2),
				domain([]int{4}, 1),
				domain([]int{5}, 0),
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := must.M1(sharding.NewShardingParamSharding(tc.param, devices.Range(tc.param.NumDevices()), devices.DefaultMemory))
			shape := shapes.Make(tc.shape...)
			domains := must.M1(s.IndexDomains(shape))
			assertDomains(t, tc.want, domains)

			// Disassemble returns the shapes of the domains.
			shards := must.M1(s.Disassemble(shape))
			require.Len(t, shards, len(tc.want))
			for i, shard := range shards {
				assert.True(t, tc.want[i].Shape.Equal(shard.Shape), "shard #%d: want %s, got %s", i, tc.want[i].Shape, shard.Shape)
				assert.Equal(t, devices.ID(i), shard.Sharding.Devices().At(0).ID())
			}
		})
	}
}

func TestShardingParamSharding(t *testing.T) {
	p := param([]int{2, 1}, []int{0}, []int{2})
	s := must.M1(sharding.NewShardingParamSharding(p, devices.FromIDs(10, 11), devices.DeviceMemory))
	assert.Equal(t, sharding.KindShardingParam, s.Kind())
	assert.False(t, s.IsFullyReplicated())
	assert.True(t, p.Equal(s.ShardingParam()))
	assert.Equal(t, "ShardingParamSharding({[2 1] to [0] on [2]}, devices: [device#10, device#11], memory_kind: device)",
		s.String())

	t.Run("ShardShape", func(t *testing.T) {
		assert.Equal(t, []int{3, 5}, must.M1(s.ShardShape(shapes.Make(6, 5))).Dimensions)
		_, err := s.ShardShape(shapes.Make(7, 5))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		_, err = s.ShardShape(shapes.Make(6))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("RankMismatch", func(t *testing.T) {
		_, err := s.IndexDomains(shapes.Make(6, 5, 2))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		_, err = s.Disassemble(shapes.Make(6))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("DisassembleDynamic", func(t *testing.T) {
		shape := shapes.MakeDynamic(shapes.DynamicAxisOf("batch", 8), shapes.StaticAxis(3))
		shards := must.M1(s.DisassembleDynamic(shape))
		require.Len(t, shards, 2)
		for _, shard := range shards {
			assert.Equal(t, "[batch<=4 3]", shard.Shape.String())
		}
		assert.Equal(t, devices.ID(11), shards[1].Sharding.Devices().At(0).ID())
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := sharding.NewShardingParamSharding(p, devices.Range(3), devices.DefaultMemory)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		_, err = sharding.NewShardingParamSharding(param([]int{3}, []int{0}, []int{2}), devices.Range(2), devices.DefaultMemory)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("WithDevicesAndMemoryKind", func(t *testing.T) {
		moved := must.M1(s.WithDevices(devices.FromIDs(1, 0)))
		domains := must.M1(moved.IndexDomains(shapes.Make(4, 2)))
		assertDomains(t, []shapes.IndexDomain{domain([]int{0, 0}, 2, 2), domain([]int{2, 0}, 2, 2)}, domains)
		assert.Equal(t, devices.ID(0), must.M1(moved.Disassemble(shapes.Make(4, 2)))[1].Sharding.Devices().At(0).ID())
		assert.False(t, moved.Equal(s))

		host := s.WithMemoryKind(devices.UnpinnedHostMemory)
		assert.Equal(t, devices.UnpinnedHostMemory, host.MemoryKind())
		assert.True(t, host.WithMemoryKind(devices.DeviceMemory).Equal(s))
	})

	t.Run("FullyReplicated", func(t *testing.T) {
		replicated := must.M1(sharding.NewShardingParamSharding(param([]int{1, 1}, []int{0}, []int{4}),
			devices.Range(4), devices.DefaultMemory))
		assert.True(t, replicated.IsFullyReplicated())
		assert.Equal(t, []int{3, 3}, must.M1(replicated.ShardShape(shapes.Make(3, 3))).Dimensions)
	})
}
