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

func TestConcreteSharding(t *testing.T) {
	shape := shapes.Make(10, 4)
	shardShapes := []shapes.Shape{shapes.Make(6, 4), shapes.Make(4, 4)}
	s := must.M1(sharding.NewConcreteSharding(devices.FromIDs(0, 1), devices.DeviceMemory, shape, shardShapes))
	assert.Equal(t, sharding.KindConcrete, s.Kind())
	assert.True(t, s.HasStaticShape())
	assert.False(t, s.HasDynamicShape())
	assert.False(t, s.IsFullyReplicated())
	assert.Equal(t,
		"ConcreteSharding(shape: [10 4], shard_shapes: [[6 4], [4 4]], devices: [device#0, device#1], memory_kind: device)",
		s.String())

	t.Run("Accessors", func(t *testing.T) {
		assert.True(t, shape.Equal(must.M1(s.Shape())))
		got := must.M1(s.ShardShapes())
		require.Len(t, got, 2)
		assert.True(t, got[0].Equal(shardShapes[0]))
		assert.True(t, got[1].Equal(shardShapes[1]))

		// Querying the other case fails.
		_, err := s.DynamicShape()
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		_, err = s.ShardDynamicShapes()
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("Disassemble", func(t *testing.T) {
		shards := must.M1(s.Disassemble(shape))
		require.Len(t, shards, 2)
		for i, shard := range shards {
			assert.True(t, shard.Shape.Equal(shardShapes[i]), "shard #%d: %s", i, shard.Shape)
			single, ok := shard.Sharding.(*sharding.SingleDeviceSharding)
			require.True(t, ok)
			assert.Equal(t, devices.ID(i), single.Device().ID())
			assert.Equal(t, devices.DeviceMemory, single.MemoryKind())
		}

		_, err := s.Disassemble(shapes.Make(10, 5))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("DisassembleDynamic", func(t *testing.T) {
		shards := must.M1(s.DisassembleDynamic(shapes.ToDynamic(shape)))
		require.Len(t, shards, 2)
		assert.Equal(t, "[6 4]", shards[0].Shape.String())
		assert.Equal(t, "[4 4]", shards[1].Shape.String())

		_, err := s.DisassembleDynamic(shapes.MakeDynamic(shapes.DynamicAxisOf("batch", 10), shapes.StaticAxis(4)))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("ShardShape", func(t *testing.T) {
		_, err := s.ShardShape(shape)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)

		even := must.M1(sharding.NewConcreteSharding(devices.FromIDs(0, 1), devices.DefaultMemory,
			shape, []shapes.Shape{shapes.Make(5, 4), shapes.Make(5, 4)}))
		assert.Equal(t, []int{5, 4}, must.M1(even.ShardShape(shape)).Dimensions)
	})

	t.Run("IndexDomains", func(t *testing.T) {
		_, err := s.IndexDomains(shape)
		require.ErrorIs(t, err, sharding.ErrUnsupported)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := sharding.NewConcreteSharding(devices.FromIDs(0, 1, 2), devices.DefaultMemory, shape, shardShapes)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		_, err = sharding.NewConcreteSharding(devices.FromIDs(0, 1), devices.DefaultMemory,
			shape, []shapes.Shape{shapes.Make(6, 4), shapes.Make(4)})
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
		_, err = sharding.NewConcreteSharding(devices.NewList(), devices.DefaultMemory, shape, nil)
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	})

	t.Run("WithDevicesAndMemoryKind", func(t *testing.T) {
		moved := must.M1(s.WithDevices(devices.FromIDs(2, 3)))
		assert.Equal(t, []devices.ID{2, 3}, moved.Devices().IDs())
		shards := must.M1(moved.Disassemble(shape))
		assert.Equal(t, devices.ID(3), shards[1].Sharding.Devices().At(0).ID())
		assert.False(t, moved.Equal(s))

		_, err := s.WithDevices(devices.FromIDs(2))
		require.ErrorIs(t, err, sharding.ErrInvalidArgument)

		host := s.WithMemoryKind(devices.PinnedHostMemory)
		assert.Equal(t, devices.PinnedHostMemory, host.MemoryKind())
		assert.Equal(t, devices.PinnedHostMemory, must.M1(host.Disassemble(shape))[0].Sharding.MemoryKind())
		assert.False(t, host.Equal(s))
		assert.True(t, host.WithMemoryKind(devices.DeviceMemory).Equal(s))
	})
}

func TestDynamicConcreteSharding(t *testing.T) {
	shape := shapes.MakeDynamic(shapes.DynamicAxisOf("batch", 16), shapes.StaticAxis(3))
	shardShapes := []shapes.DynamicShape{
		shapes.MakeDynamic(shapes.DynamicAxisOf("batch", 8), shapes.StaticAxis(3)),
		shapes.MakeDynamic(shapes.DynamicAxisOf("batch", 8), shapes.StaticAxis(3)),
	}
	s := must.M1(sharding.NewDynamicConcreteSharding(devices.FromIDs(0, 1), devices.DefaultMemory, shape, shardShapes))
	assert.True(t, s.HasDynamicShape())
	assert.False(t, s.HasStaticShape())
	assert.True(t, shape.Equal(must.M1(s.DynamicShape())))
	assert.Len(t, must.M1(s.ShardDynamicShapes()), 2)
	_, err := s.Shape()
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	_, err = s.ShardShapes()
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)

	shards := must.M1(s.DisassembleDynamic(shape))
	require.Len(t, shards, 2)
	for i, shard := range shards {
		assert.Equal(t, "[batch<=8 3]", shard.Shape.String())
		assert.Equal(t, devices.ID(i), shard.Sharding.Devices().At(0).ID())
	}

	// A dynamic sharding can't disassemble static shapes.
	_, err = s.Disassemble(shape.PaddedShape())
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)
	_, err = s.ShardShape(shape.PaddedShape())
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)

	// Names are part of the shape.
	_, err = s.DisassembleDynamic(shapes.MakeDynamic(shapes.DynamicAxisOf("seq", 16), shapes.StaticAxis(3)))
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)

	static := must.M1(sharding.NewConcreteSharding(devices.FromIDs(0, 1), devices.DefaultMemory,
		shape.PaddedShape(), []shapes.Shape{shapes.Make(8, 3), shapes.Make(8, 3)}))
	assert.False(t, s.Equal(static))
	assert.False(t, static.Equal(s))

	_, err = sharding.NewDynamicConcreteSharding(devices.FromIDs(0), devices.DefaultMemory, shape, shardShapes)
	require.ErrorIs(t, err, sharding.ErrInvalidArgument)
}
