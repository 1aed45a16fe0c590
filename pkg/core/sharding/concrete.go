// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sharding

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/sharding/pkg/core/devices"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/support/xslices"
)

// ConcreteSharding holds the shard shapes declared by the caller, one per device, which don't need to
// be identical. Use ConcreteEvenSharding if all shard shapes are the same.
//
// It holds either static shapes or dynamic shapes, fixed at construction: see HasStaticShape and
// HasDynamicShape. It doesn't know where each shard is located in the global array, so IndexDomains
// fails with ErrUnsupported.
type ConcreteSharding struct {
	baseSharding

	// Exactly one of static or dynamic is set.
	static  *concreteStaticShapes
	dynamic *concreteDynamicShapes
}

type concreteStaticShapes struct {
	shape       shapes.Shape
	shardShapes []shapes.Shape
}

type concreteDynamicShapes struct {
	shape       shapes.DynamicShape
	shardShapes []shapes.DynamicShape
}

var _ Sharding = (*ConcreteSharding)(nil)

// NewConcreteSharding creates a ConcreteSharding of an array with the given shape into shards with the given
// shapes: shardShapes[i] is the shape of the shard on list.At(i).
//
// It requires len(shardShapes) == list.Len(), and every shard shape to have the same rank as shape.
// Dimensions can't be negative.
func NewConcreteSharding(list devices.List, kind devices.MemoryKind,
	shape shapes.Shape, shardShapes []shapes.Shape) (*ConcreteSharding, error) {
	base, err := newBaseSharding("ConcreteSharding", list, kind)
	if err != nil {
		return nil, err
	}
	if len(shardShapes) != list.Len() {
		return nil, invalidArgumentf("ConcreteSharding: got %d devices but %d shard shapes", list.Len(), len(shardShapes))
	}
	if err := validShape("ConcreteSharding", shape); err != nil {
		return nil, err
	}
	for i, shardShape := range shardShapes {
		if err := validShape("ConcreteSharding", shardShape); err != nil {
			return nil, err
		}
		if shardShape.Rank() != shape.Rank() {
			return nil, invalidArgumentf("ConcreteSharding: shard shape #%d %s has a different rank than the shape %s",
				i, shardShape, shape)
		}
	}
	return &ConcreteSharding{
		baseSharding: base,
		static: &concreteStaticShapes{
			shape:       shape.Clone(),
			shardShapes: xslices.Map(shardShapes, shapes.Shape.Clone),
		},
	}, nil
}

// NewDynamicConcreteSharding creates a ConcreteSharding of an array with the given dynamic shape into shards
// with the given dynamic shapes: shardShapes[i] is the shape of the shard on list.At(i).
//
// It requires len(shardShapes) == list.Len(), and every shard shape to have the same rank as shape.
// Bounds can't be negative.
func NewDynamicConcreteSharding(list devices.List, kind devices.MemoryKind,
	shape shapes.DynamicShape, shardShapes []shapes.DynamicShape) (*ConcreteSharding, error) {
	base, err := newBaseSharding("ConcreteSharding", list, kind)
	if err != nil {
		return nil, err
	}
	if len(shardShapes) != list.Len() {
		return nil, invalidArgumentf("ConcreteSharding: got %d devices but %d shard dynamic shapes",
			list.Len(), len(shardShapes))
	}
	if err := validDynamicShape("ConcreteSharding", shape); err != nil {
		return nil, err
	}
	for i, shardShape := range shardShapes {
		if err := validDynamicShape("ConcreteSharding", shardShape); err != nil {
			return nil, err
		}
		if shardShape.Rank() != shape.Rank() {
			return nil, invalidArgumentf("ConcreteSharding: shard dynamic shape #%d %s has a different rank than the shape %s",
				i, shardShape, shape)
		}
	}
	return &ConcreteSharding{
		baseSharding: base,
		dynamic: &concreteDynamicShapes{
			shape:       shape.Clone(),
			shardShapes: xslices.Map(shardShapes, shapes.DynamicShape.Clone),
		},
	}, nil
}

// Kind implements Sharding.
func (s *ConcreteSharding) Kind() Kind { return KindConcrete }

// HasStaticShape returns whether the sharding holds static shapes.
func (s *ConcreteSharding) HasStaticShape() bool { return s.static != nil }

// HasDynamicShape returns whether the sharding holds dynamic shapes.
func (s *ConcreteSharding) HasDynamicShape() bool { return s.dynamic != nil }

// Shape returns the global shape. It fails with ErrInvalidArgument if the sharding holds dynamic shapes.
func (s *ConcreteSharding) Shape() (shapes.Shape, error) {
	if s.static == nil {
		return shapes.Shape{}, invalidArgumentf("ConcreteSharding holds dynamic shapes, not a static shape")
	}
	return s.static.shape.Clone(), nil
}

// DynamicShape returns the global dynamic shape. It fails with ErrInvalidArgument if the sharding holds
// static shapes.
func (s *ConcreteSharding) DynamicShape() (shapes.DynamicShape, error) {
	if s.dynamic == nil {
		return shapes.DynamicShape{}, invalidArgumentf("ConcreteSharding holds static shapes, not a dynamic shape")
	}
	return s.dynamic.shape.Clone(), nil
}

// ShardShapes returns the shard shapes, one per device. It fails with ErrInvalidArgument if the sharding holds
// dynamic shapes.
func (s *ConcreteSharding) ShardShapes() ([]shapes.Shape, error) {
	if s.static == nil {
		return nil, invalidArgumentf("ConcreteSharding holds dynamic shard shapes, not static ones")
	}
	return xslices.Map(s.static.shardShapes, shapes.Shape.Clone), nil
}

// ShardDynamicShapes returns the shard dynamic shapes, one per device. It fails with ErrInvalidArgument if the
// sharding holds static shapes.
func (s *ConcreteSharding) ShardDynamicShapes() ([]shapes.DynamicShape, error) {
	if s.dynamic == nil {
		return nil, invalidArgumentf("ConcreteSharding holds static shard shapes, not dynamic ones")
	}
	return xslices.Map(s.dynamic.shardShapes, shapes.DynamicShape.Clone), nil
}

// IsFullyReplicated implements Sharding. Concrete shards are never assumed to be replicas.
func (s *ConcreteSharding) IsFullyReplicated() bool { return false }

// ShardShape implements Sharding. It only succeeds for static shapes, when all shards have the same shape.
func (s *ConcreteSharding) ShardShape(shape shapes.Shape) (shapes.Shape, error) {
	if _, err := s.Disassemble(shape); err != nil {
		return shapes.Shape{}, err
	}
	shardShape, ok := commonShape(s.static.shardShapes)
	if !ok {
		return shapes.Shape{}, invalidArgumentf("ConcreteSharding does not have a fixed shard shape")
	}
	return shardShape, nil
}

// Disassemble implements Sharding. The shape must be the global shape of the sharding: it returns the
// declared shard shapes.
func (s *ConcreteSharding) Disassemble(shape shapes.Shape) ([]Shard, error) {
	if err := validShape("ConcreteSharding", shape); err != nil {
		return nil, err
	}
	if s.static == nil {
		return nil, invalidArgumentf("ConcreteSharding holds dynamic shapes, it can't disassemble static shape %s", shape)
	}
	if !shape.Equal(s.static.shape) {
		return nil, invalidArgumentf("ConcreteSharding can only disassemble shape %s, got %s", s.static.shape, shape)
	}
	return s.shards(s.static.shardShapes), nil
}

// DisassembleDynamic implements Sharding. The shape must be the global dynamic shape of the sharding.
//
// A sharding holding static shapes also accepts a dynamic shape without dynamic axes, equal to its shape.
func (s *ConcreteSharding) DisassembleDynamic(shape shapes.DynamicShape) ([]DynamicShard, error) {
	if err := validDynamicShape("ConcreteSharding", shape); err != nil {
		return nil, err
	}
	if s.static != nil {
		if shape.IsDynamic() || !shape.PaddedShape().Equal(s.static.shape) {
			return nil, invalidArgumentf("ConcreteSharding holds static shape %s, it can't disassemble dynamic shape %s",
				s.static.shape, shape)
		}
		return s.dynamicShards(xslices.Map(s.static.shardShapes, shapes.ToDynamic)), nil
	}
	if !shape.Equal(s.dynamic.shape) {
		return nil, invalidArgumentf("ConcreteSharding can only disassemble dynamic shape %s, got %s",
			s.dynamic.shape, shape)
	}
	return s.dynamicShards(s.dynamic.shardShapes), nil
}

// IndexDomains implements Sharding. It fails with ErrUnsupported for any well-formed shape: shard shapes
// alone don't tell where each shard is located.
func (s *ConcreteSharding) IndexDomains(shape shapes.Shape) ([]shapes.IndexDomain, error) {
	if err := validShape("ConcreteSharding", shape); err != nil {
		return nil, err
	}
	return nil, unsupportedf("ConcreteSharding does not have index domain information (shape=%s)", shape)
}

// WithDevices implements Sharding.
func (s *ConcreteSharding) WithDevices(list devices.List) (Sharding, error) {
	if err := s.checkNumDevices("ConcreteSharding", list); err != nil {
		return nil, err
	}
	base, err := newBaseSharding("ConcreteSharding", list, s.memoryKind)
	if err != nil {
		return nil, err
	}
	return &ConcreteSharding{baseSharding: base, static: s.static, dynamic: s.dynamic}, nil
}

// WithMemoryKind implements Sharding.
func (s *ConcreteSharding) WithMemoryKind(kind devices.MemoryKind) Sharding {
	return &ConcreteSharding{baseSharding: s.rebased(kind), static: s.static, dynamic: s.dynamic}
}

// Equal implements Sharding.
func (s *ConcreteSharding) Equal(other Sharding) bool {
	o, ok := other.(*ConcreteSharding)
	if !ok || !s.sameAssignment(other) || s.HasStaticShape() != o.HasStaticShape() {
		return false
	}
	if s.static != nil {
		return s.static.shape.Equal(o.static.shape) &&
			slices.EqualFunc(s.static.shardShapes, o.static.shardShapes, shapes.Shape.Equal)
	}
	return s.dynamic.shape.Equal(o.dynamic.shape) &&
		slices.EqualFunc(s.dynamic.shardShapes, o.dynamic.shardShapes, shapes.DynamicShape.Equal)
}

// String implements Sharding.
func (s *ConcreteSharding) String() string {
	var shape string
	var shardShapes []string
	if s.static != nil {
		shape = s.static.shape.String()
		shardShapes = xslices.Map(s.static.shardShapes, shapes.Shape.String)
	} else {
		shape = s.dynamic.shape.String()
		shardShapes = xslices.Map(s.dynamic.shardShapes, shapes.DynamicShape.String)
	}
	return fmt.Sprintf("ConcreteSharding(shape: %s, shard_shapes: [%s], %s)",
		shape, strings.Join(shardShapes, ", "), s.describeAssignment())
}
