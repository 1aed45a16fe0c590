// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"fmt"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
)

// ConcreteEvenSharding splits an array with a known shape into shards of one shared shape, one per device.
//
// The shard shape is trusted as declared: it doesn't need to divide the global shape. Devices are laid
// out over the tiles of the global shape in row-major order, see IndexDomains.
type ConcreteEvenSharding struct {
	baseSharding
	shape, shardShape shapes.Shape
}

var _ Sharding = (*ConcreteEvenSharding)(nil)

// NewConcreteEvenSharding creates a ConcreteEvenSharding of an array with the given shape, where every device
// holds a shard of shardShape.
//
// Both shapes must have non-negative dimensions. shardShape must have the same rank as shape, and a dimension
// can only be 0 if the corresponding dimension of shape is also 0.
func NewConcreteEvenSharding(list devices.List, kind devices.MemoryKind,
	shape, shardShape shapes.Shape) (*ConcreteEvenSharding, error) {
	base, err := newBaseSharding("ConcreteEvenSharding", list, kind)
	if err != nil {
		return nil, err
	}
	if err := validShape("ConcreteEvenSharding", shape); err != nil {
		return nil, err
	}
	if err := validShape("ConcreteEvenSharding", shardShape); err != nil {
		return nil, err
	}
	if shape.Rank() != shardShape.Rank() {
		return nil, invalidArgumentf("ConcreteEvenSharding: shard shape %s has a different rank than the shape %s",
			shardShape, shape)
	}
	for axis, shardDim := range shardShape.Dimensions {
		if shardDim == 0 && shape.Dimensions[axis] > 0 {
			return nil, invalidArgumentf("ConcreteEvenSharding: shard shape %s has an empty axis #%d, but shape %s doesn't",
				shardShape, axis, shape)
		}
	}
	return &ConcreteEvenSharding{
		baseSharding: base,
		shape:        shape.Clone(),
		shardShape:   shardShape.Clone(),
	}, nil
}

// Kind implements Sharding.
func (s *ConcreteEvenSharding) Kind() Kind { return KindConcreteEven }

// Shape returns the global shape.
func (s *ConcreteEvenSharding) Shape() shapes.Shape { return s.shape.Clone() }

// UniformShardShape returns the declared shape shared by every shard.
func (s *ConcreteEvenSharding) UniformShardShape() shapes.Shape { return s.shardShape.Clone() }

// IsFullyReplicated implements Sharding. It's true if the shard shape is the whole shape.
func (s *ConcreteEvenSharding) IsFullyReplicated() bool { return s.shardShape.Equal(s.shape) }

func (s *ConcreteEvenSharding) checkShape(shape shapes.Shape) error {
	if err := validShape("ConcreteEvenSharding", shape); err != nil {
		return err
	}
	if !shape.Equal(s.shape) {
		return invalidArgumentf("ConcreteEvenSharding can only handle shape %s, got %s", s.shape, shape)
	}
	return nil
}

// ShardShape implements Sharding. The shape must be the global shape of the sharding.
func (s *ConcreteEvenSharding) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	if err := s.checkShape(shape); err != nil {
		return shapes.Shape{}, err
	}
	return s.shardShape.Clone(), nil
}

// Disassemble implements Sharding. The shape must be the global shape of the sharding: every device
// gets the declared shard shape.
//
// The declared shard shape is returned as is, also for the trailing tiles of an uneven split, where
// IndexDomains returns truncated domains. E.g. shape [5] with shard shape [2] disassembles into [2] for
// every device, while the domain of the third tile is IndexDomain(origin=[4], shape=[1]).
func (s *ConcreteEvenSharding) Disassemble(shape shapes.Shape) ([]Shard, error) {
	if err := s.checkShape(shape); err != nil {
		return nil, err
	}
	shardShapes := make([]shapes.Shape, s.devices.Len())
	for i := range shardShapes {
		shardShapes[i] = s.shardShape
	}
	return s.shards(shardShapes), nil
}

// DisassembleDynamic implements Sharding. Only dynamic shapes without dynamic axes, equal to the global
// shape of the sharding, are accepted.
func (s *ConcreteEvenSharding) DisassembleDynamic(shape shapes.DynamicShape) ([]DynamicShard, error) {
	if err := validDynamicShape("ConcreteEvenSharding", shape); err != nil {
		return nil, err
	}
	if shape.IsDynamic() {
		return nil, invalidArgumentf("ConcreteEvenSharding can only disassemble static shapes, got %s", shape)
	}
	if err := s.checkShape(shape.PaddedShape()); err != nil {
		return nil, err
	}
	shardShapes := make([]shapes.DynamicShape, s.devices.Len())
	for i := range shardShapes {
		shardShapes[i] = shapes.ToDynamic(s.shardShape)
	}
	return s.dynamicShards(shardShapes), nil
}

// IndexDomains implements Sharding. The shape must be the global shape of the sharding.
//
// Each axis of the shape is divided into ceil(dim/shardDim) tiles, and device i takes the tile i (modulo the
// number of tiles) in row-major order. Tiles crossing the end of an axis are truncated.
func (s *ConcreteEvenSharding) IndexDomains(shape shapes.Shape) ([]shapes.IndexDomain, error) {
	if err := s.checkShape(shape); err != nil {
		return nil, err
	}
	gridDims := make([]int, shape.Rank())
	for axis, dim := range shape.Dimensions {
		shardDim := s.shardShape.Dimensions[axis]
		if shardDim == 0 {
			// The axis is empty: a single empty tile.
			gridDims[axis] = 1
			continue
		}
		gridDims[axis] = max(ceilDiv(dim, shardDim), 1)
	}
	grid := shapes.Make(gridDims...)
	numTiles := grid.Size()
	domains := make([]shapes.IndexDomain, s.devices.Len())
	for i := range domains {
		tile := grid.Unravel(i % numTiles)
		domains[i] = clippedDomain(shape, tile.Mul(s.shardShape.Dimensions), s.shardShape)
	}
	return domains, nil
}

// WithDevices implements Sharding.
func (s *ConcreteEvenSharding) WithDevices(list devices.List) (Sharding, error) {
	if err := s.checkNumDevices("ConcreteEvenSharding", list); err != nil {
		return nil, err
	}
	base, err := newBaseSharding("ConcreteEvenSharding", list, s.memoryKind)
	if err != nil {
		return nil, err
	}
	return &ConcreteEvenSharding{baseSharding: base, shape: s.shape, shardShape: s.shardShape}, nil
}

// WithMemoryKind implements Sharding.
func (s *ConcreteEvenSharding) WithMemoryKind(kind devices.MemoryKind) Sharding {
	return &ConcreteEvenSharding{baseSharding: s.rebased(kind), shape: s.shape, shardShape: s.shardShape}
}

// Equal implements Sharding.
func (s *ConcreteEvenSharding) Equal(other Sharding) bool {
	o, ok := other.(*ConcreteEvenSharding)
	return ok && s.sameAssignment(other) && s.shape.Equal(o.shape) && s.shardShape.Equal(o.shardShape)
}

// String implements Sharding.
func (s *ConcreteEvenSharding) String() string {
	return fmt.Sprintf("ConcreteEvenSharding(shape: %s, shard_shape: %s, %s)",
		s.shape, s.shardShape, s.describeAssignment())
}
