// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"fmt"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"k8s.io/klog/v2"
)

// ShardingParamSharding tiles an array over its devices as described by a ShardingParam.
//
// Device i of the list is the logical device id i of the ShardingParam mesh.
type ShardingParamSharding struct {
	baseSharding
	param ShardingParam

	// tileOfDevice[i] is the flat index of the tile held by device i.
	tileOfDevice []int
}

var _ Sharding = (*ShardingParamSharding)(nil)

// NewShardingParamSharding creates a ShardingParamSharding. The param must be valid (see ShardingParam.Verify),
// and its number of devices must match the list: product(DimShards) * ReplicationFactor() == list.Len().
func NewShardingParamSharding(param ShardingParam, list devices.List, kind devices.MemoryKind) (*ShardingParamSharding, error) {
	base, err := newBaseSharding("ShardingParamSharding", list, kind)
	if err != nil {
		return nil, err
	}
	if err := param.Verify(); err != nil {
		return nil, err
	}
	if param.NumDevices() != list.Len() {
		return nil, invalidArgumentf("ShardingParamSharding: ShardingParam %s requires %d devices, got %d",
			param, param.NumDevices(), list.Len())
	}
	s := &ShardingParamSharding{
		baseSharding: base,
		param:        param.Clone(),
		tileOfDevice: param.TileOfDevices(),
	}
	if klog.V(3).Enabled() {
		klog.Infof("created %s", s)
	}
	return s, nil
}

// Kind implements Sharding.
func (s *ShardingParamSharding) Kind() Kind { return KindShardingParam }

// ShardingParam returns a copy of the tiling description.
func (s *ShardingParamSharding) ShardingParam() ShardingParam { return s.param.Clone() }

// IsFullyReplicated implements Sharding: it's true if there is only one tile.
func (s *ShardingParamSharding) IsFullyReplicated() bool { return s.param.NumTiles() == 1 }

// tileShape returns the shape of the (non-truncated) tiles: ceil(dim/numShards) on each axis.
func (s *ShardingParamSharding) tileShape(shape shapes.Shape) (shapes.Shape, error) {
	if err := validShape("ShardingParamSharding", shape); err != nil {
		return shapes.Shape{}, err
	}
	if shape.Rank() != s.param.Rank() {
		return shapes.Shape{}, invalidArgumentf("ShardingParamSharding: shape %s has rank %d, but ShardingParam %s has rank %d",
			shape, shape.Rank(), s.param, s.param.Rank())
	}
	dims := make([]int, shape.Rank())
	for axis, dim := range shape.Dimensions {
		dims[axis] = ceilDiv(dim, s.param.DimShards[axis])
	}
	return shapes.Shape{Dimensions: dims}, nil
}

// IndexDomains implements Sharding.
//
// Each axis d of the shape is split in DimShards[d] tiles of ceil(dim/DimShards[d]) elements, the trailing
// tile being truncated. Devices holding replicas of the same tile get equal domains.
func (s *ShardingParamSharding) IndexDomains(shape shapes.Shape) ([]shapes.IndexDomain, error) {
	tile, err := s.tileShape(shape)
	if err != nil {
		return nil, err
	}
	grid := shapes.Make(s.param.DimShards...)
	domains := make([]shapes.IndexDomain, len(s.tileOfDevice))
	for i, tileIdx := range s.tileOfDevice {
		origin := grid.Unravel(tileIdx).Mul(tile.Dimensions)
		domains[i] = clippedDomain(shape, origin, tile)
	}
	return domains, nil
}

// Disassemble implements Sharding. The shard shapes are the shapes of the index domains, so with
// uneven splits the trailing shards are smaller.
func (s *ShardingParamSharding) Disassemble(shape shapes.Shape) ([]Shard, error) {
	domains, err := s.IndexDomains(shape)
	if err != nil {
		return nil, err
	}
	return s.shards(domainShapes(domains)), nil
}

// DisassembleDynamic implements Sharding. The bounds of the dynamic shape are split as in Disassemble, and
// each shard keeps the dynamic flag and name of every axis.
func (s *ShardingParamSharding) DisassembleDynamic(shape shapes.DynamicShape) ([]DynamicShard, error) {
	domains, err := s.IndexDomains(shape.PaddedShape())
	if err != nil {
		return nil, err
	}
	shardShapes := make([]shapes.DynamicShape, len(domains))
	for i, domain := range domains {
		shardShape := shape.Clone()
		for axis := range shardShape.Axes {
			shardShape.Axes[axis].Bound = domain.Shape.Dimensions[axis]
		}
		shardShapes[i] = shardShape
	}
	return s.dynamicShards(shardShapes), nil
}

// ShardShape implements Sharding. It fails with ErrInvalidArgument if the shape is not evenly divisible
// by the tiling.
func (s *ShardingParamSharding) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	tile, err := s.tileShape(shape)
	if err != nil {
		return shapes.Shape{}, err
	}
	for axis, dim := range shape.Dimensions {
		if dim%s.param.DimShards[axis] != 0 {
			return shapes.Shape{}, invalidArgumentf("ShardingParamSharding: uneven shards, axis #%d of shape %s is not divisible by %d",
				axis, shape, s.param.DimShards[axis])
		}
	}
	return tile, nil
}

// WithDevices implements Sharding.
func (s *ShardingParamSharding) WithDevices(list devices.List) (Sharding, error) {
	if err := s.checkNumDevices("ShardingParamSharding", list); err != nil {
		return nil, err
	}
	base, err := newBaseSharding("ShardingParamSharding", list, s.memoryKind)
	if err != nil {
		return nil, err
	}
	return &ShardingParamSharding{baseSharding: base, param: s.param, tileOfDevice: s.tileOfDevice}, nil
}

// WithMemoryKind implements Sharding.
func (s *ShardingParamSharding) WithMemoryKind(kind devices.MemoryKind) Sharding {
	return &ShardingParamSharding{baseSharding: s.rebased(kind), param: s.param, tileOfDevice: s.tileOfDevice}
}

// Equal implements Sharding.
func (s *ShardingParamSharding) Equal(other Sharding) bool {
	o, ok := other.(*ShardingParamSharding)
	return ok && s.sameAssignment(other) && s.param.Equal(o.param)
}

// String implements Sharding.
func (s *ShardingParamSharding) String() string {
	return fmt.Sprintf("ShardingParamSharding(%s, %s)", s.param, s.describeAssignment())
}
